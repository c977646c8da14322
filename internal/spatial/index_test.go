package spatial

import "testing"

type fixedLocated struct {
	name string
	p    Point
}

func (f fixedLocated) Position() (Point, bool) { return f.p, true }

func TestWithinRadiusOrdersByDistance(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 20000)
	near := fixedLocated{name: "near", p: g.CellCenter(0, 0)}
	far := fixedLocated{name: "far", p: Point{Lat: g.CellCenter(0, 0).Lat + 0.05, Lon: g.CellCenter(0, 0).Lon}}

	idx := BuildPriorIndex(g, []Located{far, near})
	hits := idx.WithinRadius(g.CellCenter(0, 0), 10000)

	// far sits 0.05 degrees of latitude (~5.6 km) from the query point, inside the 10 km
	// radius, so both items are returned and near must come first.
	if len(hits) != 2 {
		t.Fatalf("expected both items within radius, got %d hits", len(hits))
	}
	if hits[0].(fixedLocated).name != "near" {
		t.Fatalf("expected near item, got %v", hits[0])
	}
}

func TestWithinRadiusExcludesBeyondRadius(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 20000)
	center := g.CellCenter(0, 0)
	farAway := fixedLocated{name: "far", p: Point{Lat: center.Lat + 10, Lon: center.Lon}}

	idx := BuildPriorIndex(g, []Located{farAway})
	hits := idx.WithinRadius(center, 1000)
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

type noPosition struct{}

func (noPosition) Position() (Point, bool) { return Point{}, false }

func TestBuildPriorIndexSkipsUnlocatedItems(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 20000)
	idx := BuildPriorIndex(g, []Located{noPosition{}})
	hits := idx.WithinRadius(g.CellCenter(0, 0), 1_000_000)
	if len(hits) != 0 {
		t.Fatalf("expected unlocated items never to be indexed, got %d hits", len(hits))
	}
}
