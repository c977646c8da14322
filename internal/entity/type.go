package entity

// Type is the compile-time, per-entity-type descriptor shared by all instances of that
// type: a dense name->index attribute map and the grouped event-handler index (§3
// "Entities": "The attribute table is a dense array indexed by a compile-time
// `name -> index` map shared by all instances of the same entity type").
type Type struct {
	Name      string
	Kind      Kind
	AttrNames []string
	attrIndex map[string]int

	groups map[groupKey][]*Handler

	// declaredHandlers records, per (event, state), which attributes have *some* handler
	// declared -- conditional or not. §4.3: "purely informational (for discovery and
	// ordering)"; it is never used to skip resolution. It backs HasAnyHandler and
	// AttributesWithHandlers; the scheduler's substep walk (resolveAll) does not consult it
	// and resolves every declared attribute. Keeping it distinct from "will fire this substep" is the
	// exact distinction the source's removed attributesWithoutHandlersBySubstep/hasNoHandlers
	// optimization collapsed (§9) -- do not special-case on it beyond iteration order.
	declaredHandlers map[eventStateKey]map[string]bool
}

type eventStateKey struct {
	Event Event
	State string
}

// NewType constructs an entity type from an ordered attribute list.
func NewType(name string, kind Kind, attrNames []string) *Type {
	t := &Type{
		Name:             name,
		Kind:             kind,
		AttrNames:        append([]string{}, attrNames...),
		attrIndex:        make(map[string]int, len(attrNames)),
		groups:           make(map[groupKey][]*Handler),
		declaredHandlers: make(map[eventStateKey]map[string]bool),
	}
	for i, n := range attrNames {
		t.attrIndex[n] = i
	}
	return t
}

// AttrIndex returns the dense index for an attribute name.
func (t *Type) AttrIndex(name string) (int, bool) {
	idx, ok := t.attrIndex[name]
	return idx, ok
}

// AddHandler registers a compiled handler into its (attribute, event, state) group.
// Per the Open Question resolution in §9: declaration order wins within a group, with
// state-specific handlers overriding the default state for the same attribute -- enforced
// by HandlersFor consulting the state-specific group before falling back to default.
func (t *Type) AddHandler(h *Handler) {
	key := groupKey{Attribute: h.Attribute, Event: h.Event, StateTag: h.StateTag}
	t.groups[key] = append(t.groups[key], h)

	esk := eventStateKey{Event: h.Event, State: h.StateTag}
	if t.declaredHandlers[esk] == nil {
		t.declaredHandlers[esk] = make(map[string]bool)
	}
	t.declaredHandlers[esk][h.Attribute] = true
}

// HandlersFor returns the ordered handler list that applies to (attribute, event, state):
// the state-specific group if any handler was declared on that state for this attribute,
// otherwise the default-state group. Within a group, unconditional handlers are ordered
// before conditional ones per §3 ("unconditional handlers are evaluated first when mixed
// with conditional ones" -- see orderedGroup).
func (t *Type) HandlersFor(attribute string, ev Event, state string) []*Handler {
	if state != DefaultState {
		if key := (groupKey{Attribute: attribute, Event: ev, StateTag: state}); len(t.groups[key]) > 0 {
			return orderedGroup(t.groups[key])
		}
	}
	return orderedGroup(t.groups[groupKey{Attribute: attribute, Event: ev, StateTag: DefaultState}])
}

// orderedGroup places unconditional handlers first (declaration order among themselves,
// §9's tie-breaker for multiple unconditional handlers), then conditional ones (selector
// tested in declaration order), matching §3: "the first handler whose selector evaluates
// true (unconditional handlers are evaluated first when mixed with conditional ones)
// provides the value".
func orderedGroup(handlers []*Handler) []*Handler {
	if len(handlers) < 2 {
		return handlers
	}
	out := make([]*Handler, 0, len(handlers))
	for _, h := range handlers {
		if !h.Conditional {
			out = append(out, h)
		}
	}
	for _, h := range handlers {
		if h.Conditional {
			out = append(out, h)
		}
	}
	return out
}

// HasAnyHandler reports whether some handler (conditional or not) was declared for
// (attribute, event, state) across either the state-specific or default group -- the
// has-handler index of §4.3, informational only.
func (t *Type) HasAnyHandler(attribute string, ev Event, state string) bool {
	if state != DefaultState && t.declaredHandlers[eventStateKey{Event: ev, State: state}][attribute] {
		return true
	}
	return t.declaredHandlers[eventStateKey{Event: ev, State: DefaultState}][attribute]
}

// AttributesWithHandlers lists, in declaration order, every attribute with any handler
// declared for (event, state). It is informational only: the scheduler does not call it,
// and nothing uses it to skip resolve() calls.
func (t *Type) AttributesWithHandlers(ev Event, state string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range t.AttrNames {
		if t.HasAnyHandler(name, ev, state) && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	return out
}
