// Package rng provides the per-replicate random source. The teacher seeds a single
// package-global math/rand.Rand per training run (reinforcement.alphaMonteCarloVanillaTrain
// calls rand.Seed once); Josh generalizes this into one non-global *Stream per replicate,
// since §3 invariant (c) forbids sampling from a global source and §4.9 requires
// reproducibility from masterSeed+replicateIndex.
package rng

import "math/rand"

// Stream is a replicate-scoped random source. It embeds *rand.Rand so it satisfies
// value.RNG (Float64/NormFloat64/Intn) without that package importing this one.
type Stream struct {
	*rand.Rand
	MasterSeed      int64
	ReplicateIndex  int
}

// NewStream derives a replicate's RNG deterministically from a master seed and replicate
// index, so re-running the same replicate index against the same master seed reproduces
// the same export stream (testable property 2).
func NewStream(masterSeed int64, replicateIndex int) *Stream {
	seed := masterSeed ^ int64(uint64(replicateIndex+1)*0x9E3779B97F4A7C15)
	return &Stream{
		Rand:           rand.New(rand.NewSource(seed)),
		MasterSeed:     masterSeed,
		ReplicateIndex: replicateIndex,
	}
}
