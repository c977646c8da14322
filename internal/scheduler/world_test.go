package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/value"
)

func newTestWorld() *World {
	engine := value.NewEngine(value.NewConversionGraph())
	return NewWorld(engine, 10, rand.New(rand.NewSource(1)))
}

// constBody always resolves to a fixed scalar.
type constBody struct{ v value.Value }

func (b constBody) Exec(e *entity.Entity, attrIndex int) (interface{}, error) { return b.v, nil }

// refBody resolves another attribute on the same world/entity, used to construct cycles.
type refBody struct {
	w    *World
	attr string
}

func (b refBody) Exec(e *entity.Entity, attrIndex int) (interface{}, error) {
	v, _, err := b.w.resolve(e, b.attr)
	return v, err
}

// constSelector always evaluates to a fixed bool.
type constSelector struct{ v bool }

func (s constSelector) Eval(e *entity.Entity) (bool, error) { return s.v, nil }

func TestResolveRunsFirstMatchingHandler(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	typ.AddHandler(&entity.Handler{
		Attribute: "height", Event: entity.EventStep,
		Body: constBody{v: value.NewDecimal(9, value.EMPTY)},
	})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}
	w.currentEvent = entity.EventStep

	v, present, err := w.resolve(e, "height")
	if err != nil || !present {
		t.Fatalf("expected resolved value, got present=%v err=%v", present, err)
	}
	s, _ := value.AsScalar(v)
	if s.Float() != 9 {
		t.Fatalf("expected 9, got %f", s.Float())
	}
}

func TestResolveFallsThroughToPriorWhenNoHandlerFires(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	e.SetAttributeByIndex(0, value.NewDecimal(4, value.EMPTY))
	e.FreezePrior()
	e.StartSubstep()
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}
	w.currentEvent = entity.EventStep

	v, present, err := w.resolve(e, "height")
	if err != nil || !present {
		t.Fatalf("expected a fallback-to-prior value, got present=%v err=%v", present, err)
	}
	s, _ := value.AsScalar(v)
	if s.Float() != 4 {
		t.Fatalf("expected prior value 4, got %f", s.Float())
	}
}

func TestResolveRemainsAbsentWithoutHandlerOrPrior(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}
	w.currentEvent = entity.EventStep

	_, present, err := w.resolve(e, "height")
	if err != nil {
		t.Fatalf("absent attribute resolution must never be an error, got %v", err)
	}
	if present {
		t.Fatalf("expected absent, no handler and no prior")
	}
}

func TestResolveUnconditionalHandlerFiresBeforeConditional(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	typ.AddHandler(&entity.Handler{
		Attribute: "height", Event: entity.EventStep,
		Conditional: true, Selector: constSelector{v: true},
		Body: constBody{v: value.NewDecimal(99, value.EMPTY)},
	})
	typ.AddHandler(&entity.Handler{
		Attribute: "height", Event: entity.EventStep,
		Body: constBody{v: value.NewDecimal(1, value.EMPTY)},
	})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}
	w.currentEvent = entity.EventStep

	v, _, err := w.resolve(e, "height")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := value.AsScalar(v)
	if s.Float() != 1 {
		t.Fatalf("expected the unconditional handler's value 1 fired first, got %f", s.Float())
	}
}

func TestResolveDetectsSelfReferentialCycle(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"a", "b"})
	typ.AddHandler(&entity.Handler{
		Attribute: "a", Event: entity.EventStep,
		Body: refBody{w: w, attr: "b"},
	})
	typ.AddHandler(&entity.Handler{
		Attribute: "b", Event: entity.EventStep,
		Body: refBody{w: w, attr: "a"},
	})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}
	w.currentEvent = entity.EventStep

	_, _, err := w.resolve(e, "a")
	if err == nil {
		t.Fatalf("expected a cycle detection error")
	}
	if _, ok := err.(*CycleDetectedError); !ok {
		t.Fatalf("expected *CycleDetectedError, got %T: %v", err, err)
	}
}

func TestResolveMemoizesWithinSubstep(t *testing.T) {
	w := newTestWorld()
	calls := 0
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	typ.AddHandler(&entity.Handler{
		Attribute: "height", Event: entity.EventStep,
		Body: countingBody{counter: &calls},
	})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}
	w.currentEvent = entity.EventStep

	if _, _, err := w.resolve(e, "height"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := w.resolve(e, "height"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the handler body to run exactly once per substep, ran %d times", calls)
	}
}

type countingBody struct{ counter *int }

func (b countingBody) Exec(e *entity.Entity, attrIndex int) (interface{}, error) {
	*b.counter++
	return value.NewDecimal(1, value.EMPTY), nil
}

func TestRunTimestepSkipsInitAfterStepZero(t *testing.T) {
	w := newTestWorld()
	var seenInit, seenStep []int
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	typ.AddHandler(&entity.Handler{
		Attribute: "height", Event: entity.EventInit,
		Body: trackingBody{seen: &seenInit},
	})
	typ.AddHandler(&entity.Handler{
		Attribute: "height", Event: entity.EventStep,
		Body: trackingBody{seen: &seenStep},
	})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}

	if err := w.RunTimestep(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.RunTimestep(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seenInit) != 1 {
		t.Fatalf("expected init to fire exactly once (step 0 only), fired %d times", len(seenInit))
	}
	if len(seenStep) != 2 {
		t.Fatalf("expected step to fire every timestep, fired %d times", len(seenStep))
	}
}

type trackingBody struct{ seen *[]int }

func (b trackingBody) Exec(e *entity.Entity, attrIndex int) (interface{}, error) {
	*b.seen = append(*b.seen, len(*b.seen))
	return value.NewDecimal(1, value.EMPTY), nil
}

// priorPlusOneBody implements ForeverTree's `age.step = prior.age + 1 year` (S1,
// spec.md:194) directly against the world, the same way a compiled handler body would via
// the resolver.
type priorPlusOneBody struct{ w *World }

func (b priorPlusOneBody) Exec(e *entity.Entity, attrIndex int) (interface{}, error) {
	prior, present := b.w.ResolvePrior(e, "age")
	if !present {
		return nil, fmt.Errorf("prior.age unexpectedly absent")
	}
	s, ok := value.AsScalar(prior)
	if !ok {
		return nil, fmt.Errorf("prior.age is not a scalar")
	}
	return value.NewDecimal(s.Float()+1, value.EMPTY), nil
}

// TestRunTimestepCarriesResolvedValueToPriorReadsWithinFirstTimestep mirrors S1 (spec.md:194,
// "age.init = 0 year; age.step = prior.age + 1 year", 10 trees/10 steps): a brand-new
// entity has no frozen Prior snapshot in its very first timestep, so without the
// end_substep carry-forward (§4.3, spec.md:88) `step`'s `prior.age` read would find
// nothing and a naive implementation crashes computing on an absent operand. The
// carry-forward must let it observe the value `init` produced earlier in the same
// timestep instead.
func TestRunTimestepCarriesResolvedValueToPriorReadsWithinFirstTimestep(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("ForeverTree", entity.KindOrganism, []string{"age"})
	typ.AddHandler(&entity.Handler{
		Attribute: "age", Event: entity.EventInit,
		Body: constBody{v: value.NewDecimal(0, value.EMPTY)},
	})
	typ.AddHandler(&entity.Handler{
		Attribute: "age", Event: entity.EventStep,
		Body: priorPlusOneBody{w: w},
	})
	w.Types["ForeverTree"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}

	if err := w.RunTimestep(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error on a brand-new entity's first timestep: %v", err)
	}

	idx, _ := typ.AttrIndex("age")
	afterStep0, _ := value.AsScalar(e.Current[idx].Value)
	if afterStep0.Float() != 1 {
		t.Fatalf("expected init's 0 carried into step's prior.age read (0+1=1), got %f", afterStep0.Float())
	}

	if err := w.RunTimestep(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error on timestep 1: %v", err)
	}
	afterStep1, _ := value.AsScalar(e.Current[idx].Value)
	if afterStep1.Float() != 2 {
		t.Fatalf("expected step 0's frozen prior (1) plus one, got %f", afterStep1.Float())
	}
}

func TestRunTimestepHonorsCancellationBetweenPhases(t *testing.T) {
	w := newTestWorld()
	typ := entity.NewType("Organism", entity.KindOrganism, []string{"height"})
	w.Types["Organism"] = typ
	e := entity.NewEntity(typ, entity.KindOrganism)
	w.Entities[entity.KindOrganism] = []*entity.Entity{e}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.RunTimestep(ctx, 0)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
