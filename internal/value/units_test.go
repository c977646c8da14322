package value

import "testing"

func TestUnitEqual(t *testing.T) {
	m := SingleUnit("m")
	m2 := SingleUnit("m")
	if !m.Equal(m2) {
		t.Fatalf("expected %v to equal %v", m, m2)
	}
	kg := SingleUnit("kg")
	if m.Equal(kg) {
		t.Fatalf("did not expect %v to equal %v", m, kg)
	}
}

func TestUnitMultiplyDivide(t *testing.T) {
	m := SingleUnit("m")
	s := SingleUnit("s")
	mPerS := m.Divide(s)
	if mPerS.String() != "m/s" {
		t.Fatalf("expected m/s, got %s", mPerS.String())
	}
	back := mPerS.Multiply(s)
	if !back.Equal(m) {
		t.Fatalf("expected m after multiplying back by s, got %s", back.String())
	}
}

func TestEmptyUnitIsDimensionless(t *testing.T) {
	if !EMPTY.IsEmpty() {
		t.Fatalf("EMPTY must be empty")
	}
	if EMPTY.String() != "count" {
		t.Fatalf("expected EMPTY to render as count, got %s", EMPTY.String())
	}
}

func TestConversionGraphPathAndConvert(t *testing.T) {
	cg := NewConversionGraph()
	cg.Declare("m", "km", func(v float64) float64 { return v / 1000 })
	cg.Declare("km", "m", func(v float64) float64 { return v * 1000 })
	cg.Declare("km", "mi", func(v float64) float64 { return v * 0.621371 })
	cg.Declare("mi", "km", func(v float64) float64 { return v / 0.621371 })

	path, err := cg.Path("m", "mi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 3 || path[0] != "m" || path[2] != "mi" {
		t.Fatalf("expected m->km->mi, got %v", path)
	}

	out, err := cg.Convert(1000, "m", "mi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out < 0.62 || out > 0.623 {
		t.Fatalf("expected ~0.621371 miles, got %f", out)
	}
}

func TestConversionGraphUnknownUnit(t *testing.T) {
	cg := NewConversionGraph()
	cg.Declare("m", "km", func(v float64) float64 { return v / 1000 })
	_, err := cg.Path("m", "furlong")
	if err == nil {
		t.Fatalf("expected error for unknown unit")
	}
	unknown, ok := err.(*UnknownUnitError)
	if !ok || unknown.Symbol != "furlong" {
		t.Fatalf("expected *UnknownUnitError{Symbol: \"furlong\"}, got %T: %v", err, err)
	}
}
