package export

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicFloat64 is a lock-free float64 counter. Adapted for the in-flight-bytes gauge
// (§4.9 testable property: "live bytes never exceed chunk_size * queue_capacity per
// writer"): many producer goroutines across a replicate pool increment/decrement this
// counter far more often than anything needs to read it, so a CAS loop beats a mutex.
//
// As with any unsafe.Pointer use, the pointer derived from &af.val must not be retained
// across a potential GC move; every atomic op below re-derives it immediately before use.
type AtomicFloat64 struct {
	val float64
}

func NewAtomicFloat64(val float64) *AtomicFloat64 {
	return &AtomicFloat64{val: val}
}

func (af *AtomicFloat64) Load() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(bits)
}

// Add atomically adds addend, retrying the CAS until it succeeds (unlike a single-shot
// attempt, retrying is correct here: the increment is commutative and has no "stale read"
// hazard to detect, only contention to resolve).
func (af *AtomicFloat64) Add(addend float64) float64 {
	for {
		old := af.Load()
		newVal := old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&af.val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			return newVal
		}
	}
}
