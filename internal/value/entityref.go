package value

// EntityRef is an opaque handle to a live entity instance, carried on the expression
// machine's operand stack per the design note in §9 ("operand stack of Value variants:
// Scalar, RealizedDistribution, VirtualDistribution, EntityRef, String, Bool"). This
// package never dereferences Handle -- doing so would require importing package entity,
// which itself imports value for attribute storage. Handle is populated and consumed only
// by package entity/scheduler, which both know the concrete *entity.Entity type.
type EntityRef struct {
	Kind   string
	ID     string
	Handle interface{}
}

// EntityCollection is a distribution of entities, e.g. the result of create_entity or a
// child-entity attribute. It is distinct from Realized (whose elements are Scalars)
// because entities are not scalars.
type EntityCollection struct {
	Refs []EntityRef
}

func (EntityCollection) isDistribution() {}
func (EntityCollection) Units() Unit     { return EMPTY }
