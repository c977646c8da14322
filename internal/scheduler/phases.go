package scheduler

import (
	"context"

	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/spatial"
)

// RunTimestep executes one full timestep: every phase in §4.5 step 1's fixed order over
// every entity kind in entity.KindOrder, followed by an end-of-timestep prior freeze and
// spatial re-index. `init` only runs when step == 0. Cancellation is polled between
// substeps (phases), not just between timesteps, so the replicate driver's cooperative
// cancellation (§4.8) can interrupt a long-running step promptly.
func (w *World) RunTimestep(ctx context.Context, step int) error {
	w.Step = step

	for _, phase := range entity.Phases {
		if phase == entity.EventInit && step != 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := w.runPhase(phase); err != nil {
			return err
		}
	}

	w.freezePrior()
	w.rebuildPriorIndex()
	return nil
}

// runPhase executes one phase across every live entity, in fixed kind order. The entity
// list is taken once, before resolution, and no discovery pass runs. An entity created
// mid-phase via World.CreateEntities is fast-forwarded through the earlier phases and
// appended to w.Entities, but this phase's handlers do not run for it; it takes part from
// the next phase on.
func (w *World) runPhase(phase entity.Event) error {
	w.currentEvent = phase

	all := w.AllEntities()
	for _, e := range all {
		e.StartSubstep()
	}

	for _, e := range all {
		if e.Removed {
			continue
		}
		if err := w.resolveAll(e); err != nil {
			return err
		}
	}

	for _, e := range all {
		e.EndSubstep()
	}
	return nil
}

// freezePrior commits every live entity's current snapshot to prior (§4.3 "end of
// timestep"), run once after all phases complete.
func (w *World) freezePrior() {
	for _, e := range w.AllEntities() {
		e.FreezePrior()
	}
}

// rebuildPriorIndex rebuilds the spatial radial-query index against the snapshot just
// frozen (§4.6 "rebuilt once per timestep at freeze_prior").
func (w *World) rebuildPriorIndex() {
	if w.Grid == nil {
		return
	}
	entities := w.AllEntities()
	located := make([]spatial.Located, 0, len(entities))
	for _, e := range entities {
		located = append(located, e)
	}
	w.PriorIndex = spatial.BuildPriorIndex(w.Grid, located)
}
