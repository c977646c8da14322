// Package value implements the scalar/distribution value engine (units, arithmetic,
// sampling) described for the Josh simulation core.
package value

import (
	"fmt"
	"math"
	"sort"
	"strings"

	lvgraph "github.com/katalvlaran/lvlath/graph"
)

// Unit is an ordered multiset of base-unit symbols with rational exponents,
// e.g. "m", "m^2", "kg*m/s^2". EMPTY denotes dimensionless.
type Unit struct {
	// exponents maps base symbol -> exponent. A symbol with exponent 0 is absent.
	exponents map[string]float64
}

// EMPTY is the dimensionless unit.
var EMPTY = Unit{}

// NewUnit constructs a Unit from base-symbol -> exponent pairs.
func NewUnit(exponents map[string]float64) Unit {
	u := Unit{exponents: make(map[string]float64, len(exponents))}
	for sym, exp := range exponents {
		if exp != 0 {
			u.exponents[sym] = exp
		}
	}
	return u
}

// SingleUnit constructs a Unit with one base symbol raised to exponent 1, e.g. SingleUnit("m").
func SingleUnit(symbol string) Unit {
	return NewUnit(map[string]float64{symbol: 1})
}

// IsEmpty reports whether this unit is dimensionless.
func (u Unit) IsEmpty() bool {
	return len(u.exponents) == 0
}

// Equal reports whether two units carry the same base symbols and exponents.
func (u Unit) Equal(other Unit) bool {
	if len(u.exponents) != len(other.exponents) {
		return false
	}
	for sym, exp := range u.exponents {
		if other.exponents[sym] != exp {
			return false
		}
	}
	return true
}

// String renders the unit canonically, e.g. "kg*m/s^2".
func (u Unit) String() string {
	if u.IsEmpty() {
		return "count"
	}
	syms := make([]string, 0, len(u.exponents))
	for sym := range u.exponents {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	var num, den []string
	for _, sym := range syms {
		exp := u.exponents[sym]
		switch {
		case exp == 1:
			num = append(num, sym)
		case exp > 0:
			num = append(num, fmt.Sprintf("%s^%s", sym, trimExp(exp)))
		case exp == -1:
			den = append(den, sym)
		default:
			den = append(den, fmt.Sprintf("%s^%s", sym, trimExp(-exp)))
		}
	}

	out := strings.Join(num, "*")
	if out == "" {
		out = "1"
	}
	if len(den) > 0 {
		out += "/" + strings.Join(den, "*")
	}
	return out
}

func trimExp(exp float64) string {
	if exp == math.Trunc(exp) {
		return fmt.Sprintf("%d", int64(exp))
	}
	return fmt.Sprintf("%g", exp)
}

// Multiply combines two units' exponents (used when multiplying values).
func (u Unit) Multiply(other Unit) Unit {
	out := make(map[string]float64, len(u.exponents)+len(other.exponents))
	for sym, exp := range u.exponents {
		out[sym] = exp
	}
	for sym, exp := range other.exponents {
		out[sym] += exp
	}
	return NewUnit(out)
}

// Divide subtracts other's exponents from u's (used when dividing values).
func (u Unit) Divide(other Unit) Unit {
	out := make(map[string]float64, len(u.exponents)+len(other.exponents))
	for sym, exp := range u.exponents {
		out[sym] = exp
	}
	for sym, exp := range other.exponents {
		out[sym] -= exp
	}
	return NewUnit(out)
}

// Pow raises every exponent by p.
func (u Unit) Pow(p float64) Unit {
	out := make(map[string]float64, len(u.exponents))
	for sym, exp := range u.exponents {
		out[sym] = exp * p
	}
	return NewUnit(out)
}

// converterEdge is one directed conversion: convert maps a magnitude in "from" units to the
// magnitude in "to" units (covers both pure-scale and affine conversions like temperature).
type converterEdge struct {
	from, to string
	convert  func(magnitude float64) float64
}

// ConversionGraph is the directed graph of declared unit conversions, searched by BFS
// for a path between two unit symbols. It is grounded on a small wrapper around
// katalvlaran/lvlath's generic BFS graph: lvlath supplies connectivity/path discovery,
// while the actual per-edge scale/offset callable is tracked out-of-band, since lvlath
// edges only carry an int64 weight, not an arbitrary callable.
type ConversionGraph struct {
	g     *lvgraph.Graph
	edges map[string]converterEdge // key: from+"->"+to
}

// NewConversionGraph returns an empty, directed conversion graph.
func NewConversionGraph() *ConversionGraph {
	return &ConversionGraph{
		g:     lvgraph.NewGraph(true, true),
		edges: make(map[string]converterEdge),
	}
}

// Declare registers a directed conversion edge from -> to. Declaring the inverse edge
// is the caller's responsibility; conversions are not assumed to be symmetric (e.g.
// affine temperature conversions are not self-inverse under the same callable).
func (cg *ConversionGraph) Declare(from, to string, convert func(magnitude float64) float64) {
	cg.g.AddVertex(&lvgraph.Vertex{ID: from})
	cg.g.AddVertex(&lvgraph.Vertex{ID: to})
	cg.g.AddEdge(from, to, 1)
	cg.edges[from+"->"+to] = converterEdge{from: from, to: to, convert: convert}
}

// edgeKey formats a symbol pair into the edges map key.
func edgeKey(from, to string) string { return from + "->" + to }

// Path searches for a BFS conversion path from -> to over single base symbols.
// Returns the ordered list of symbols on the path, including endpoints.
func (cg *ConversionGraph) Path(from, to string) ([]string, error) {
	if from == to {
		return []string{from}, nil
	}
	if !cg.g.HasVertex(from) {
		return nil, &UnknownUnitError{Symbol: from}
	}
	if !cg.g.HasVertex(to) {
		return nil, &UnknownUnitError{Symbol: to}
	}

	res, err := cg.g.BFS(from, nil)
	if err != nil {
		return nil, err
	}
	if !res.Visited[to] {
		return nil, fmt.Errorf("no conversion path from %q to %q", from, to)
	}

	// Walk parent pointers from `to` back to `from`.
	path := []string{to}
	cur := to
	for cur != from {
		parent, ok := res.Parent[cur]
		if !ok {
			return nil, fmt.Errorf("broken BFS parent chain for %q", to)
		}
		path = append(path, parent)
		cur = parent
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Convert applies the chain of declared edges along the BFS path to magnitude,
// converting a scalar quantity expressed in `from` base units into `to` base units.
func (cg *ConversionGraph) Convert(magnitude float64, from, to string) (float64, error) {
	path, err := cg.Path(from, to)
	if err != nil {
		return 0, err
	}
	out := magnitude
	for i := 0; i+1 < len(path); i++ {
		edge, ok := cg.edges[edgeKey(path[i], path[i+1])]
		if !ok {
			return 0, fmt.Errorf("no declared edge %s->%s on discovered path", path[i], path[i+1])
		}
		out = edge.convert(out)
	}
	return out, nil
}
