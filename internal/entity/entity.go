// Package entity implements the entity & attribute store (§4.3): attribute slots,
// prior/current snapshots, states, and event-handler groups.
package entity

import (
	"github.com/google/uuid"

	"github.com/schmidtdse/josh-core/internal/spatial"
	"github.com/schmidtdse/josh-core/internal/value"
)

// Kind enumerates the entity kinds named in §3 and the fixed iteration order of §4.5.
type Kind int

const (
	KindSimulation Kind = iota
	KindPatch
	KindManagement
	KindOrganism
	KindDisturbance
	KindExternal
)

// KindOrder is the fixed per-timestep iteration order over entity kinds (§4.5 step 1).
var KindOrder = []Kind{KindSimulation, KindPatch, KindManagement, KindOrganism, KindDisturbance}

func (k Kind) String() string {
	switch k {
	case KindSimulation:
		return "Simulation"
	case KindPatch:
		return "Patch"
	case KindOrganism:
		return "Organism"
	case KindDisturbance:
		return "Disturbance"
	case KindManagement:
		return "Management"
	case KindExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// Event enumerates the named lifecycle points of §3/§4.3. Phase re-uses the same type
// restricted to the five substep-ordered members (constant, init, start, step, end).
type Event int

const (
	EventConstant Event = iota
	EventInit
	EventStart
	EventStep
	EventEnd
	EventRemove
)

func (e Event) String() string {
	switch e {
	case EventConstant:
		return "constant"
	case EventInit:
		return "init"
	case EventStart:
		return "start"
	case EventStep:
		return "step"
	case EventEnd:
		return "end"
	case EventRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Phases is the fixed substep ordering of §4.5 step 1 ("init" only fires on step 0,
// enforced by the scheduler, not here).
var Phases = []Event{EventConstant, EventInit, EventStart, EventStep, EventEnd}

// DefaultState is the implicit state every entity starts in absent an explicit transition.
const DefaultState = ""

// Slot holds one attribute's per-substep resolution state: unset, or resolved with a value.
type Slot struct {
	Resolved bool
	Value    value.Value
}

// Entity is one instance of an EntityType: attributes, state, geometry, and the
// prior/current snapshot discipline of §3.
type Entity struct {
	ID    string
	Type  *Type
	Kind  Kind
	State string
	// nextState holds a state write that occurred mid-substep; it becomes State only at
	// end_substep, so handlers on the newly-entered state never fire in the same substep
	// that wrote it (§4.5 "State transitions").
	nextState *string

	Geometry *spatial.Point
	PatchID  string // owning patch, for non-patch spatial entities ("here")

	Current  []Slot
	Prior    []value.Value
	hasPrior []bool

	// carried holds, per attribute, the most recently resolved value from any phase
	// completed so far this timestep. EndSubstep copies resolved Current slots into it
	// (§4.3 end_substep: "copies resolved current values into the slot map used by the
	// subsequent substep"); StartSubstep still flushes Current itself every phase, so a
	// handler in the next phase always gets a fresh chance to fire (see
	// TestRunTimestepSkipsInitAfterStepZero). carried only matters as GetPriorByIndex's
	// fallback for an entity with no frozen Prior yet -- letting a `prior.x` read inside a
	// brand-new entity's very first timestep observe a value an earlier phase already
	// produced this timestep, instead of only ever seeing last timestep's freeze (see S1,
	// spec.md:194). Once FreezePrior records a real Prior, hasPrior takes precedence and
	// carried is never consulted again.
	carried []Slot

	Removed bool
}

// NewEntity constructs a fresh entity of the given type with all slots unset.
func NewEntity(t *Type, kind Kind) *Entity {
	return &Entity{
		ID:       uuid.NewString(),
		Type:     t,
		Kind:     kind,
		State:    DefaultState,
		Current:  make([]Slot, len(t.AttrNames)),
		Prior:    make([]value.Value, len(t.AttrNames)),
		hasPrior: make([]bool, len(t.AttrNames)),
		carried:  make([]Slot, len(t.AttrNames)),
	}
}

// StartSubstep flushes the per-substep resolution slots (§4.3 start_substep). Every phase
// gets its own fresh resolution pass -- an attribute with a handler declared for this
// phase must have the chance to fire even if it was already resolved earlier this
// timestep; carried (not Current) is what lets that earlier value survive for readers
// that fall through instead of firing a handler.
func (e *Entity) StartSubstep() {
	for i := range e.Current {
		e.Current[i] = Slot{}
	}
}

// EndSubstep copies this phase's resolved current values into carried, which is what
// GetPriorByIndex falls back to for an entity with no frozen Prior yet (§4.3 end_substep);
// the real Prior snapshot stays untouched until FreezePrior runs at end-of-timestep. Also
// commits any deferred state transition (§4.5).
func (e *Entity) EndSubstep() {
	for i, slot := range e.Current {
		if slot.Resolved {
			e.carried[i] = slot
		}
	}
	if e.nextState != nil {
		e.State = *e.nextState
		e.nextState = nil
	}
}

// SetState requests a state transition. Per §4.5, handlers on the new state do not fire
// until the next phase: the write is staged and applied at EndSubstep.
func (e *Entity) SetState(s string) {
	e.nextState = &s
}

// FreezePrior atomically swaps current -> prior at end-of-timestep (§3 "Ownership").
// The prior snapshot becomes an immutable value shared by reference with subsequent
// readers until the next FreezePrior call.
func (e *Entity) FreezePrior() {
	for i, slot := range e.Current {
		if slot.Resolved {
			e.Prior[i] = slot.Value
			e.hasPrior[i] = true
		}
		// Attributes that stayed unset this timestep keep whatever prior they already had.
	}
}

// GetAttributeByIndex returns the current-slot value if resolved.
func (e *Entity) GetAttributeByIndex(idx int) (value.Value, bool) {
	s := e.Current[idx]
	return s.Value, s.Resolved
}

// SetAttributeByIndex resolves idx's current slot to v.
func (e *Entity) SetAttributeByIndex(idx int, v value.Value) {
	e.Current[idx] = Slot{Resolved: true, Value: v}
}

// GetPriorByIndex returns the prior snapshot's value for idx. If FreezePrior has never
// recorded a value for idx (true of every attribute on a brand-new entity until its first
// timestep completes), this falls back to carried -- whatever an earlier phase this
// timestep already resolved -- rather than reporting absent outright (§4.3 end_substep).
func (e *Entity) GetPriorByIndex(idx int) (value.Value, bool) {
	if e.hasPrior[idx] {
		return e.Prior[idx], true
	}
	if e.carried[idx].Resolved {
		return e.carried[idx].Value, true
	}
	return nil, false
}

// IterAttributeNames yields every declared attribute name in declaration order.
func (e *Entity) IterAttributeNames() []string {
	return e.Type.AttrNames
}

// Position implements spatial.Located so entities can be indexed directly for radial
// queries without package spatial importing entity.
func (e *Entity) Position() (spatial.Point, bool) {
	if e.Geometry == nil {
		return spatial.Point{}, false
	}
	return *e.Geometry, true
}
