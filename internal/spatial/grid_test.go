package spatial

import "testing"

func TestHaversineZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 10, Lon: 20}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// roughly one degree of latitude at the equator is ~111km.
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 1, Lon: 0}
	d := Haversine(a, b)
	if d < 110000 || d > 112000 {
		t.Fatalf("expected ~111km, got %f meters", d)
	}
}

func TestCellOfClampsToGridBounds(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 50000)
	row, col := g.CellOf(Point{Lat: -5, Lon: -5})
	if row != 0 || col != 0 {
		t.Fatalf("expected clamp to (0,0), got (%d,%d)", row, col)
	}
	row, col = g.CellOf(Point{Lat: 100, Lon: 100})
	if row != g.Rows-1 || col != g.Cols-1 {
		t.Fatalf("expected clamp to (%d,%d), got (%d,%d)", g.Rows-1, g.Cols-1, row, col)
	}
}

func TestCellCenterRoundTripsWithCellOf(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 50000)
	center := g.CellCenter(0, 0)
	row, col := g.CellOf(center)
	if row != 0 || col != 0 {
		t.Fatalf("expected cell center of (0,0) to map back to (0,0), got (%d,%d)", row, col)
	}
}

func TestSelectPatchTypeFirstNonWildcardWins(t *testing.T) {
	rules := []PatchTypeRule{
		{TypeName: "Desert", Wildcard: true},
		{TypeName: "Riparian", Predicate: func(row, col int) bool { return row == 2 }},
	}
	name, ok := SelectPatchType(2, 0, rules)
	if !ok || name != "Riparian" {
		t.Fatalf("expected Riparian to win at row 2, got %s ok=%v", name, ok)
	}
	name, ok = SelectPatchType(5, 0, rules)
	if !ok || name != "Desert" {
		t.Fatalf("expected Desert wildcard fallback, got %s ok=%v", name, ok)
	}
}

func TestSelectPatchTypeNoMatchNoFallback(t *testing.T) {
	rules := []PatchTypeRule{
		{TypeName: "Riparian", Predicate: func(row, col int) bool { return row == 2 }},
	}
	_, ok := SelectPatchType(5, 0, rules)
	if ok {
		t.Fatalf("expected no match without a wildcard fallback")
	}
}
