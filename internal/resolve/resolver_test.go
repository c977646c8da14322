package resolve

import (
	"testing"

	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/value"
)

// stubHost is a minimal Host backed by plain maps, standing in for the scheduler during
// resolve package tests.
type stubHost struct {
	current map[string]value.Value
	prior   map[string]value.Value
	patch   *entity.Entity
}

func (s *stubHost) ResolveCurrent(subject *entity.Entity, attr string) (value.Value, bool, error) {
	v, ok := s.current[attr]
	return v, ok, nil
}

func (s *stubHost) ResolvePrior(subject *entity.Entity, attr string) (value.Value, bool) {
	v, ok := s.prior[attr]
	return v, ok
}

func (s *stubHost) PatchOf(subject *entity.Entity) (*entity.Entity, bool) {
	if s.patch == nil {
		return nil, false
	}
	return s.patch, true
}

func newTestEntity() *entity.Entity {
	t := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	return entity.NewEntity(t, entity.KindOrganism)
}

func TestResolverEvalCurrent(t *testing.T) {
	host := &stubHost{current: map[string]value.Value{"height": value.NewDecimal(3, value.SingleUnit("m"))}}
	r := NewResolver(host)
	e := newTestEntity()

	path, _ := ParsePath("height")
	v, present, err := r.Eval(path, e)
	if err != nil || !present {
		t.Fatalf("expected present value, got present=%v err=%v", present, err)
	}
	s, _ := value.AsScalar(v)
	if s.Float() != 3 {
		t.Fatalf("expected 3, got %f", s.Float())
	}
}

func TestResolverEvalAbsentIsNotError(t *testing.T) {
	host := &stubHost{current: map[string]value.Value{}}
	r := NewResolver(host)
	e := newTestEntity()

	path, _ := ParsePath("height")
	_, present, err := r.Eval(path, e)
	if err != nil {
		t.Fatalf("absent attribute must not be an error, got %v", err)
	}
	if present {
		t.Fatalf("expected present=false")
	}
}

func TestResolverEvalHereFallsThroughToPatch(t *testing.T) {
	patch := newTestEntity()
	host := &stubHost{
		current: map[string]value.Value{"precipitation": value.NewDecimal(10, value.SingleUnit("mm"))},
		patch:   patch,
	}
	r := NewResolver(host)
	e := newTestEntity()

	path, _ := ParsePath("here.precipitation")
	v, present, err := r.Eval(path, e)
	if err != nil || !present {
		t.Fatalf("expected present value, got present=%v err=%v", present, err)
	}
	s, _ := value.AsScalar(v)
	if s.Float() != 10 {
		t.Fatalf("expected 10, got %f", s.Float())
	}
}

func TestResolverEvalCountOnCollection(t *testing.T) {
	trees := []*entity.Entity{newTestEntity(), newTestEntity(), newTestEntity()}
	coll := entity.NewEntityCollection(trees)
	host := &stubHost{current: map[string]value.Value{"JoshuaTrees": coll}}
	r := NewResolver(host)
	e := newTestEntity()

	path, _ := ParsePath("current.JoshuaTrees.count")
	v, present, err := r.Eval(path, e)
	if err != nil || !present {
		t.Fatalf("expected present value, got present=%v err=%v", present, err)
	}
	s, _ := value.AsScalar(v)
	if s.Int != 3 {
		t.Fatalf("expected count 3, got %d", s.Int)
	}
}
