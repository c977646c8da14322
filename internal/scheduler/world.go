// Package scheduler drives the per-timestep substep loop (§4.5): fixed kind ordering,
// lazy attribute resolution with cycle detection, fast-forwarding newly created entities,
// and end-of-timestep prior freezing.
package scheduler

import (
	"fmt"

	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/metrics"
	"github.com/schmidtdse/josh-core/internal/obslog"
	"github.com/schmidtdse/josh-core/internal/resolve"
	"github.com/schmidtdse/josh-core/internal/spatial"
	"github.com/schmidtdse/josh-core/internal/value"
	"github.com/schmidtdse/josh-core/internal/vm"
)

// World owns every live entity, the spatial index, and the shared value engine for one
// replicate. A World is single-goroutine: the replicate driver (§4.8) owns exactly one
// World per worker.
type World struct {
	Types    map[string]*entity.Type
	Entities map[entity.Kind][]*entity.Entity

	Grid       *spatial.Grid
	PriorIndex *spatial.PriorIndex
	PatchTypes []spatial.PatchTypeRule

	Engine     *value.Engine
	SampleSize int
	RNG        value.RNG

	Resolver *resolve.Resolver

	patchOf map[*entity.Entity]*entity.Entity

	currentEvent entity.Event
	currentState func(*entity.Entity) string

	active *resolutionStack

	Step int
}

// NewWorld constructs an empty World. Callers populate Types/Entities/Grid before the
// first RunTimestep call.
func NewWorld(engine *value.Engine, sampleSize int, rng value.RNG) *World {
	w := &World{
		Types:      make(map[string]*entity.Type),
		Entities:   make(map[entity.Kind][]*entity.Entity),
		Engine:     engine,
		SampleSize: sampleSize,
		RNG:        rng,
		patchOf:    make(map[*entity.Entity]*entity.Entity),
		active:     newResolutionStack(),
	}
	w.Resolver = resolve.NewResolver(w)
	return w
}

// SetPatch records the owning patch for a non-patch entity, establishing the "here" root.
func (w *World) SetPatch(e, patch *entity.Entity) {
	w.patchOf[e] = patch
}

// AllEntities flattens every kind's slice in the fixed kind order (§4.5 step 1), excluding
// removed entities.
func (w *World) AllEntities() []*entity.Entity {
	var out []*entity.Entity
	for _, k := range entity.KindOrder {
		for _, e := range w.Entities[k] {
			if !e.Removed {
				out = append(out, e)
			}
		}
	}
	return out
}

// resolve is the lazy attribute resolver driving every current.* lookup (§4.5 step c/d).
// It memoizes into the entity's current slot so repeated lookups within a substep are
// O(1) after the first, and it pushes onto the shared active-resolution stack so cycles
// spanning multiple entities are caught.
func (w *World) resolve(e *entity.Entity, attr string) (value.Value, bool, error) {
	idx, ok := e.Type.AttrIndex(attr)
	if !ok {
		return nil, false, fmt.Errorf("scheduler: %s has no attribute %q", e.Type.Name, attr)
	}

	if v, resolved := e.GetAttributeByIndex(idx); resolved {
		return v, true, nil
	}

	key := resolveKey{e: e, attr: attr}
	if err := w.active.push(key); err != nil {
		if cycleErr, ok := err.(*CycleDetectedError); ok {
			metrics.CycleErrorsTotal.Inc()
			obslog.CycleDetected(obslog.EntityContext{
				EntityKind: e.Kind.String(), EntityID: e.ID, Attribute: attr, Event: w.currentEvent.String(), State: e.State,
			}, cycleErr.Path)
		}
		return nil, false, err
	}
	defer w.active.pop()

	handlers := e.Type.HandlersFor(attr, w.currentEvent, e.State)
	for _, h := range handlers {
		fire := !h.Conditional
		if h.Conditional {
			ok, err := h.Selector.Eval(e)
			if err != nil {
				obslog.ResolutionError(obslog.EntityContext{EntityKind: e.Kind.String(), EntityID: e.ID, Attribute: attr, Event: w.currentEvent.String(), State: e.State, Source: h.Source}, err)
				return nil, false, err
			}
			fire = ok
		}
		if !fire {
			continue
		}
		raw, err := h.Body.Exec(e, idx)
		if err != nil {
			obslog.ResolutionError(obslog.EntityContext{EntityKind: e.Kind.String(), EntityID: e.ID, Attribute: attr, Event: w.currentEvent.String(), State: e.State, Source: h.Source}, err)
			return nil, false, err
		}
		var v value.Value = raw
		e.SetAttributeByIndex(idx, v)
		return v, true, nil
	}

	// No handler fired: fall through to prior, or remain absent (§4.5 "fall-through-to-
	// prior-or-unset semantics"). Memoizing the fallback avoids rescanning handlers on
	// every subsequent lookup this substep.
	if prior, had := e.GetPriorByIndex(idx); had {
		e.SetAttributeByIndex(idx, prior)
		return prior, true, nil
	}
	return nil, false, nil
}

// ResolveCurrent implements resolve.Host.
func (w *World) ResolveCurrent(subject *entity.Entity, attr string) (value.Value, bool, error) {
	return w.resolve(subject, attr)
}

// ResolvePrior implements resolve.Host.
func (w *World) ResolvePrior(subject *entity.Entity, attr string) (value.Value, bool) {
	idx, ok := subject.Type.AttrIndex(attr)
	if !ok {
		return nil, false
	}
	return subject.GetPriorByIndex(idx)
}

// PatchOf implements resolve.Host.
func (w *World) PatchOf(subject *entity.Entity) (*entity.Entity, bool) {
	p, ok := w.patchOf[subject]
	return p, ok
}

// CreateEntities implements vm.Host: creates count fresh entities of typeName as children
// of subject, fast-forwarding them through every phase already passed this timestep
// (§4.5 "newly-created-entity fast-forward").
func (w *World) CreateEntities(subject *entity.Entity, typeName string, count int) (value.EntityCollection, error) {
	t, ok := w.Types[typeName]
	if !ok {
		return value.EntityCollection{}, fmt.Errorf("scheduler: unknown entity type %q", typeName)
	}
	created := make([]*entity.Entity, 0, count)
	for i := 0; i < count; i++ {
		child := entity.NewEntity(t, t.Kind)
		w.Entities[t.Kind] = append(w.Entities[t.Kind], child)
		if patch, ok := w.patchOf[subject]; ok {
			w.SetPatch(child, patch)
		} else if subject.Kind == entity.KindPatch {
			w.SetPatch(child, subject)
		}
		created = append(created, child)
	}
	if err := w.fastForward(created); err != nil {
		return value.EntityCollection{}, err
	}
	return entity.NewEntityCollection(created), nil
}

// fastForward runs a freshly created entity through constant/init/start/step up to (but
// not including) the current phase, so it never re-runs phases already completed this
// timestep (§4.5). The current phase itself is not run for it: runPhase fixes its entity
// list before resolution, so the new entity takes part from the next phase on.
func (w *World) fastForward(created []*entity.Entity) error {
	savedEvent := w.currentEvent
	defer func() { w.currentEvent = savedEvent }()

	for _, phase := range entity.Phases {
		if phase == savedEvent {
			return nil
		}
		if phase == entity.EventInit && w.Step != 0 {
			continue
		}
		w.currentEvent = phase
		for _, e := range created {
			e.StartSubstep()
			if err := w.resolveAll(e); err != nil {
				return err
			}
			e.EndSubstep()
		}
	}
	return nil
}

// resolveAll forces resolution of every declared attribute on e, in declaration order
// (§4.5 step c: "attribute resolution in declaration order").
func (w *World) resolveAll(e *entity.Entity) error {
	for _, attr := range e.IterAttributeNames() {
		if _, _, err := w.resolve(e, attr); err != nil {
			return err
		}
	}
	return nil
}

// PatchTypeAt resolves which declared patch type governs the grid cell containing p,
// applying PatchTypes' location rules (§4.6 "Patch-type selection rules"). Returns false if
// no grid is configured or no rule (including no wildcard fallback) matches.
func (w *World) PatchTypeAt(p spatial.Point) (string, bool) {
	if w.Grid == nil {
		return "", false
	}
	row, col := w.Grid.CellOf(p)
	return spatial.SelectPatchType(row, col, w.PatchTypes)
}

// SpatialQuery implements vm.Host: resolves path across every entity within radiusMeters
// of subject in the prior snapshot, returning a Realized distribution (§4.6). Subject must
// have prior-snapshot geometry or be "here" of a geometry-bearing patch.
func (w *World) SpatialQuery(subject *entity.Entity, radiusMeters float64, path *resolve.Path) (value.Value, error) {
	if w.PriorIndex == nil {
		return value.NewRealized(value.EMPTY), nil
	}
	center, ok := subject.Position()
	if !ok {
		if patch, has := w.patchOf[subject]; has {
			center, ok = patch.Position()
		}
		if !ok {
			return nil, fmt.Errorf("scheduler: spatial query from ungeolocated entity %s#%s", subject.Kind, subject.ID)
		}
	}

	hits := w.PriorIndex.WithinRadius(center, radiusMeters)
	var scalars []value.Scalar
	unit := value.EMPTY
	for _, h := range hits {
		e, ok := h.(*entity.Entity)
		if !ok {
			continue
		}
		v, present, err := w.Resolver.Eval(path, e)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		s, ok := value.AsScalar(v)
		if !ok {
			continue
		}
		scalars = append(scalars, s)
		unit = s.Units
	}
	return value.NewRealized(unit, scalars...), nil
}

var _ vm.Host = (*World)(nil)
var _ resolve.Host = (*World)(nil)
