// Package spatial implements the grid geometry, haversine conversion, and radial query
// layer described in §4.6. The teacher's grid_world/grid_world.go builds a rectangular
// [x][y][...]State lattice by nested row/column loops over a fixed-size track; Grid here
// generalizes that same nested-loop construction to geographic lat/lon cells.
package spatial

import "math"

// Point is a geographic coordinate (WGS84 default projection, §4.6).
type Point struct {
	Lat, Lon float64
}

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// Grid is a rectangular lattice defined by lat/lon corners and a target cell size in
// meters (§4.6). Rows run south-to-north, columns west-to-east, mirroring the teacher's
// bottom-up, left-to-right Convert() construction.
type Grid struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
	CellSizeMeters float64
	Rows, Cols     int
}

// NewGrid derives row/column counts from the corner points and cell size, exactly as the
// teacher's Convert derives width/height from the input track dimensions.
func NewGrid(minLat, minLon, maxLat, maxLon, cellSizeMeters float64) *Grid {
	height := Haversine(Point{Lat: minLat, Lon: minLon}, Point{Lat: maxLat, Lon: minLon})
	width := Haversine(Point{Lat: minLat, Lon: minLon}, Point{Lat: minLat, Lon: maxLon})

	rows := int(math.Max(1, math.Round(height/cellSizeMeters)))
	cols := int(math.Max(1, math.Round(width/cellSizeMeters)))

	return &Grid{
		MinLat: minLat, MinLon: minLon,
		MaxLat: maxLat, MaxLon: maxLon,
		CellSizeMeters: cellSizeMeters,
		Rows:           rows,
		Cols:           cols,
	}
}

// CellCenter maps (row, col) to the geographic center of that cell (§4.6 "(row, col) <->
// geographic (lat, lon)").
func (g *Grid) CellCenter(row, col int) Point {
	latStep := (g.MaxLat - g.MinLat) / float64(g.Rows)
	lonStep := (g.MaxLon - g.MinLon) / float64(g.Cols)
	return Point{
		Lat: g.MinLat + latStep*(float64(row)+0.5),
		Lon: g.MinLon + lonStep*(float64(col)+0.5),
	}
}

// CellOf returns the (row, col) containing p, clamped to the grid bounds.
func (g *Grid) CellOf(p Point) (row, col int) {
	latStep := (g.MaxLat - g.MinLat) / float64(g.Rows)
	lonStep := (g.MaxLon - g.MinLon) / float64(g.Cols)
	row = clampInt(int((p.Lat-g.MinLat)/latStep), 0, g.Rows-1)
	col = clampInt(int((p.Lon-g.MinLon)/lonStep), 0, g.Cols-1)
	return
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PatchTypeRule is one patch-definition's location predicate (§4.6 "Patch-type selection
// rules"). Wildcard rules (location = `all`) are the fallback; the first non-wildcard
// match for a cell wins.
type PatchTypeRule struct {
	TypeName  string
	Wildcard  bool
	Predicate func(row, col int) bool
}

// SelectPatchType returns the winning patch type name for (row, col): the first
// non-wildcard rule whose predicate matches, else the first wildcard rule.
func SelectPatchType(row, col int, rules []PatchTypeRule) (string, bool) {
	var fallback string
	haveFallback := false
	for _, r := range rules {
		if r.Wildcard {
			if !haveFallback {
				fallback = r.TypeName
				haveFallback = true
			}
			continue
		}
		if r.Predicate != nil && r.Predicate(row, col) {
			return r.TypeName, true
		}
	}
	return fallback, haveFallback
}
