package resolve

import (
	"fmt"

	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/value"
)

// Host bridges resolve to the scheduler's lazy attribute resolution and cycle detection
// (§4.5). Resolver never resolves an attribute itself -- it only knows how to parse a path
// and delegate the lookup, so this package stays independent of scheduling order.
type Host interface {
	// ResolveCurrent lazily resolves subject.attr for the in-progress substep, recursing
	// through handler evaluation if the slot is still unset. present is false if the
	// attribute has no handler and no prior value (§4.4 "absent (never error)").
	ResolveCurrent(subject *entity.Entity, attr string) (v value.Value, present bool, err error)

	// ResolvePrior reads subject's frozen prior snapshot; never triggers resolution.
	ResolvePrior(subject *entity.Entity, attr string) (v value.Value, present bool)

	// PatchOf returns the patch entity that owns subject ("here" root), or false if
	// subject is itself patchless (e.g. a Simulation entity).
	PatchOf(subject *entity.Entity) (*entity.Entity, bool)
}

// Resolver evaluates parsed Paths against a subject entity via a Host.
type Resolver struct {
	host Host
}

// NewResolver binds a Resolver to the scheduler implementing Host.
func NewResolver(host Host) *Resolver {
	return &Resolver{host: host}
}

// Eval resolves path relative to subject. present is false when the path names an
// attribute that has never had a value produced for it -- never an error (§4.4).
func (r *Resolver) Eval(path *Path, subject *entity.Entity) (v value.Value, present bool, err error) {
	switch path.Kind {
	case RootCurrent:
		return r.evalOnEntity(subject, path, false)
	case RootPrior:
		return r.evalOnEntity(subject, path, true)
	case RootHere:
		patch, ok := r.host.PatchOf(subject)
		if !ok {
			return nil, false, nil
		}
		return r.evalOnEntity(patch, path, false)
	default:
		return nil, false, fmt.Errorf("resolve: unknown root %q", path.Root)
	}
}

func (r *Resolver) evalOnEntity(e *entity.Entity, path *Path, prior bool) (value.Value, bool, error) {
	var base value.Value
	var present bool
	var err error

	if prior {
		base, present = r.host.ResolvePrior(e, path.Name)
	} else {
		base, present, err = r.host.ResolveCurrent(e, path.Name)
	}
	if err != nil || !present || len(path.Rest) == 0 {
		return base, present, err
	}

	return applyRest(base, path.Rest)
}

// applyRest handles the nested-collection tail of a path, e.g. the ".count" in
// `prior.JoshuaTrees.count`. Only `count` is defined by §4.4; any other tail segment on a
// collection is a type error, and a tail segment on a non-collection value is as well.
func applyRest(base value.Value, rest []string) (value.Value, bool, error) {
	if len(rest) != 1 || rest[0] != "count" {
		return nil, false, fmt.Errorf("resolve: unsupported path segment %q", rest[0])
	}
	coll, ok := base.(value.EntityCollection)
	if !ok {
		return nil, false, fmt.Errorf("resolve: %q applied to non-collection value", rest[0])
	}
	return value.NewCount(int64(len(coll.Refs))), true, nil
}
