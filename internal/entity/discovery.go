package entity

import "github.com/schmidtdse/josh-core/internal/value"

// IterChildEntities walks every attribute of e and yields every live entity referenced by
// an attribute whose current value is an EntityCollection (§4.3 "Discovery"). Discovery is
// invoked twice per substep by the scheduler: before resolution (pre-existing children)
// and after (newly created children, which the scheduler then fast-forwards).
func (e *Entity) IterChildEntities() []*Entity {
	var out []*Entity
	for i := range e.Current {
		slot := e.Current[i]
		if !slot.Resolved {
			continue
		}
		coll, ok := slot.Value.(value.EntityCollection)
		if !ok {
			continue
		}
		for _, ref := range coll.Refs {
			if child, ok := ref.Handle.(*Entity); ok && !child.Removed {
				out = append(out, child)
			}
		}
	}
	return out
}

// ToRef wraps e as a value.EntityRef for placement on the expression machine's stack.
func (e *Entity) ToRef() value.EntityRef {
	return value.EntityRef{Kind: e.Kind.String(), ID: e.ID, Handle: e}
}

// NewEntityCollection boxes a slice of entities as a value.EntityCollection.
func NewEntityCollection(entities []*Entity) value.EntityCollection {
	refs := make([]value.EntityRef, len(entities))
	for i, en := range entities {
		refs[i] = en.ToRef()
	}
	return value.EntityCollection{Refs: refs}
}
