package value

import (
	"math/rand"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine(NewConversionGraph())
}

func TestAddSameUnitsScalars(t *testing.T) {
	e := newTestEngine()
	left := NewDecimal(2, SingleUnit("m"))
	right := NewDecimal(3, SingleUnit("m"))

	out, err := e.Add(left, right, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := AsScalar(out)
	if !ok {
		t.Fatalf("expected scalar result")
	}
	if s.Float() != 5 {
		t.Fatalf("expected 5, got %f", s.Float())
	}
}

func TestArithmeticNeverMutatesOperandUnits(t *testing.T) {
	// testable property 1: WithUnits must not mutate the receiver.
	original := NewDecimal(1, SingleUnit("m"))
	_ = original.WithUnits(SingleUnit("km"))
	if !original.Units.Equal(SingleUnit("m")) {
		t.Fatalf("WithUnits must not mutate the original scalar's units")
	}
}

func TestAddUnitMismatchWithoutConversion(t *testing.T) {
	e := newTestEngine()
	left := NewDecimal(2, SingleUnit("m"))
	right := NewDecimal(3, SingleUnit("kg"))

	_, err := e.Add(left, right, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatalf("expected a unit mismatch error")
	}
	if _, ok := err.(*UnitMismatchError); !ok {
		t.Fatalf("expected *UnitMismatchError, got %T", err)
	}
}

func TestAddUnitMismatchWithDeclaredConversion(t *testing.T) {
	cg := NewConversionGraph()
	cg.Declare("km", "m", func(v float64) float64 { return v * 1000 })
	e := NewEngine(cg)

	left := NewDecimal(1, SingleUnit("m"))
	right := NewDecimal(1, SingleUnit("km"))

	out, err := e.Add(left, right, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := AsScalar(out)
	if s.Float() != 1001 {
		t.Fatalf("expected 1001 m, got %f", s.Float())
	}
}

func TestMultiplyUnitsCombine(t *testing.T) {
	e := newTestEngine()
	left := NewDecimal(2, SingleUnit("m"))
	right := NewDecimal(3, SingleUnit("m"))

	out, err := e.Multiply(left, right, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := AsScalar(out)
	if s.Float() != 6 {
		t.Fatalf("expected 6, got %f", s.Float())
	}
	if !s.Units.Equal(SingleUnit("m").Multiply(SingleUnit("m"))) {
		t.Fatalf("expected m^2, got %s", s.Units.String())
	}
}

func TestRealizedOpRealizedPairwise(t *testing.T) {
	e := newTestEngine()
	left := NewRealized(SingleUnit("m"), NewDecimal(1, SingleUnit("m")), NewDecimal(2, SingleUnit("m")))
	right := NewRealized(SingleUnit("m"), NewDecimal(10, SingleUnit("m")), NewDecimal(20, SingleUnit("m")))

	out, err := e.Add(left, right, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := out.(Realized)
	if !ok {
		t.Fatalf("expected Realized result, got %T", out)
	}
	if d.Elements[0].Float() != 11 || d.Elements[1].Float() != 22 {
		t.Fatalf("expected [11,22], got %v", d.Elements)
	}
}

func TestBroadcastScalarIntoRealized(t *testing.T) {
	e := newTestEngine()
	dist := NewRealized(SingleUnit("m"), NewDecimal(1, SingleUnit("m")), NewDecimal(2, SingleUnit("m")))
	scalar := NewDecimal(10, SingleUnit("m"))

	out, err := e.Add(dist, scalar, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := out.(Realized)
	if !ok {
		t.Fatalf("expected Realized result, got %T", out)
	}
	if d.Elements[0].Float() != 11 || d.Elements[1].Float() != 12 {
		t.Fatalf("expected [11,12], got %v", d.Elements)
	}
}

func TestSampleWithoutReplacementExceedsSize(t *testing.T) {
	e := newTestEngine()
	dist := NewRealized(EMPTY, NewDecimal(1, EMPTY), NewDecimal(2, EMPTY))

	_, err := e.Sample(dist, 5, false, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatalf("expected SampleSizeError")
	}
	if _, ok := err.(*SampleSizeError); !ok {
		t.Fatalf("expected *SampleSizeError, got %T", err)
	}
}

func TestSampleWithoutReplacementNeverRepeats(t *testing.T) {
	e := newTestEngine()
	dist := NewRealized(EMPTY,
		NewDecimal(1, EMPTY), NewDecimal(2, EMPTY), NewDecimal(3, EMPTY), NewDecimal(4, EMPTY))

	out, err := e.Sample(dist, 4, false, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := out.(Realized)
	seen := map[float64]bool{}
	for _, s := range d.Elements {
		if seen[s.Float()] {
			t.Fatalf("sample without replacement repeated value %f", s.Float())
		}
		seen[s.Float()] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct values, got %d", len(seen))
	}
}

func TestReductionsSumMeanCount(t *testing.T) {
	e := newTestEngine()
	re := e.Reductions(10)
	dist := NewRealized(SingleUnit("m"), NewDecimal(1, SingleUnit("m")), NewDecimal(2, SingleUnit("m")), NewDecimal(3, SingleUnit("m")))
	rng := rand.New(rand.NewSource(1))

	if sum := re.Sum(dist, rng); sum.Float() != 6 {
		t.Fatalf("expected sum 6, got %f", sum.Float())
	}
	if mean := re.Mean(dist, rng); mean.Float() != 2 {
		t.Fatalf("expected mean 2, got %f", mean.Float())
	}
	if count := re.Count(dist, rng); count.Int != 3 {
		t.Fatalf("expected count 3, got %d", count.Int)
	}
}

func TestCastForceRewritesWithoutConverting(t *testing.T) {
	e := newTestEngine()
	s := NewDecimal(5, SingleUnit("m"))
	out, err := e.Cast(s, SingleUnit("km"), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := AsScalar(out)
	if res.Float() != 5 {
		t.Fatalf("force cast must not change magnitude, got %f", res.Float())
	}
	if !res.Units.Equal(SingleUnit("km")) {
		t.Fatalf("expected km units, got %s", res.Units.String())
	}
}
