package spatial

import "sort"

// Located is anything placeable on the grid -- entity.Entity satisfies this via its
// Geometry field without this package importing entity (avoiding the same cycle the value
// package sidesteps with EntityRef).
type Located interface {
	Position() (Point, bool)
}

// PriorIndex is a read-only snapshot of located entities, rebuilt once per timestep at
// freeze_prior (§4.6 "Radial queries run only against the prior snapshot, never current").
// Queries against a PriorIndex never observe entities created or moved later in the same
// timestep.
type PriorIndex struct {
	grid    *Grid
	buckets map[cellKey][]Located
}

type cellKey struct{ row, col int }

// BuildPriorIndex buckets items by grid cell for a coarse pre-filter before the exact
// haversine distance check, mirroring the teacher's nested row/col loop construction but
// keyed by occupancy rather than dense allocation (most cells are sparse).
func BuildPriorIndex(g *Grid, items []Located) *PriorIndex {
	idx := &PriorIndex{grid: g, buckets: make(map[cellKey][]Located)}
	for _, it := range items {
		p, ok := it.Position()
		if !ok {
			continue
		}
		row, col := g.CellOf(p)
		key := cellKey{row, col}
		idx.buckets[key] = append(idx.buckets[key], it)
	}
	return idx
}

// WithinRadius returns every indexed item within radiusMeters of center, ordered by
// ascending distance for determinism (§4.6 "radial query" / testable property: stable
// ordering given the same prior snapshot).
func (idx *PriorIndex) WithinRadius(center Point, radiusMeters float64) []Located {
	cellRadius := int(radiusMeters/idx.grid.CellSizeMeters) + 1
	centerRow, centerCol := idx.grid.CellOf(center)

	type scored struct {
		item Located
		dist float64
	}
	var candidates []scored

	for dr := -cellRadius; dr <= cellRadius; dr++ {
		for dc := -cellRadius; dc <= cellRadius; dc++ {
			row, col := centerRow+dr, centerCol+dc
			if row < 0 || row >= idx.grid.Rows || col < 0 || col >= idx.grid.Cols {
				continue
			}
			for _, it := range idx.buckets[cellKey{row, col}] {
				p, ok := it.Position()
				if !ok {
					continue
				}
				d := Haversine(center, p)
				if d <= radiusMeters {
					candidates = append(candidates, scored{item: it, dist: d})
				}
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	out := make([]Located, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}
