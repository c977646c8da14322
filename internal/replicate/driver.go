// Package replicate drives a pool of independent replicate runs (§4.8): one worker pool
// bounded by WorkerPoolSize, one seeded RNG stream per replicate derived from a shared
// master seed, cooperative cancellation polled between substeps, and export routing keyed
// by replicate index.
//
// The teacher's alphaMonteCarloVanillaTrain fans out N agent goroutines and fans them back
// in with channerics.Merge so a single estimator can serialize updates against the shared
// state matrix; replicates need the opposite shape -- each is fully independent (no shared
// mutable state to serialize against) -- so this package uses errgroup directly rather
// than a fan-in channel, bounding concurrency with a semaphore instead.
package replicate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schmidtdse/josh-core/internal/config"
	"github.com/schmidtdse/josh-core/internal/export"
	"github.com/schmidtdse/josh-core/internal/metrics"
	"github.com/schmidtdse/josh-core/internal/obslog"
	"github.com/schmidtdse/josh-core/internal/rng"
	"github.com/schmidtdse/josh-core/internal/scheduler"
	"github.com/schmidtdse/josh-core/internal/value"
)

// WorldFactory builds a fresh, independent scheduler.World for one replicate, seeded by
// stream. Each replicate gets its own entity graph; only the compiled model's type/handler
// descriptors and the conversion graph are logically shared (model.Build is typically
// called once per replicate from the same CompiledModel).
type WorldFactory func(stream *rng.Stream) (*scheduler.World, error)

// Driver runs Settings.Replicates independent replicates, each stepping from StartStep to
// EndStep, routing every entity's attributes through router (nil disables export).
type Driver struct {
	Settings *config.SimulationSettings
	NewWorld WorldFactory
	Router   *export.Router
}

// Run executes every replicate, bounding concurrency to Settings.WorkerPoolSize. It
// returns the first error encountered across all replicates; in-flight replicates are
// cancelled via the shared errgroup context.
func (d *Driver) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, d.Settings.WorkerPoolSize)

	for i := 0; i < d.Settings.Replicates; i++ {
		index := i
		group.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			return d.runOne(gctx, index)
		})
	}

	err := group.Wait()
	if d.Router != nil {
		if closeErr := d.Router.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func (d *Driver) runOne(ctx context.Context, index int) error {
	start := time.Now()
	defer func() { metrics.ReplicateDuration.Observe(time.Since(start).Seconds()) }()

	stream := rng.NewStream(d.Settings.MasterSeed, index)
	world, err := d.NewWorld(stream)
	if err != nil {
		return fmt.Errorf("replicate %d: building world: %w", index, err)
	}

	for step := d.Settings.StartStep; step <= d.Settings.EndStep; step++ {
		if err := world.RunTimestep(ctx, step); err != nil {
			obslog.Base.Error().Int("replicate", index).Int("step", step).Err(err).Msg("replicate failed")
			return fmt.Errorf("replicate %d step %d: %w", index, step, err)
		}
		if d.Router != nil {
			if err := d.exportStep(world, index, step); err != nil {
				return fmt.Errorf("replicate %d step %d: export: %w", index, step, err)
			}
		}
	}
	return nil
}

// exportStep flattens every live entity's resolved scalar attributes into an
// export.Record and routes it. Non-scalar attributes (distributions, entity collections)
// are omitted from the exported row; §4.9 export targets operate on realized scalars.
func (d *Driver) exportStep(w *scheduler.World, replicate, step int) error {
	for _, e := range w.AllEntities() {
		values := make(map[string]value.Scalar)
		for _, name := range e.IterAttributeNames() {
			idx, _ := e.Type.AttrIndex(name)
			v, resolved := e.GetAttributeByIndex(idx)
			if !resolved {
				continue
			}
			if s, ok := value.AsScalar(v); ok {
				values[name] = s
			}
		}
		rec := export.Record{
			EntityType: e.Type.Name,
			EntityID:   e.ID,
			Step:       step,
			Replicate:  replicate,
			Values:     values,
		}
		if err := d.Router.Route(rec); err != nil {
			return err
		}
	}
	return nil
}
