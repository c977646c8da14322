// Package resolve implements dotted-path attribute resolution (§4.4): `current.height`,
// `prior.JoshuaTrees.count`, `here.Precipitation`. It sits between the expression machine
// and the entity/scheduler layer, translating a path string into a lazy lookup against a
// Host without resolve itself knowing how resolution or cycle detection work.
package resolve

import (
	"fmt"
	"strings"
)

// Root identifies which snapshot a path reads from.
type Root int

const (
	RootCurrent Root = iota // this substep's in-progress resolution, may trigger resolve()
	RootPrior                // last timestep's frozen snapshot, never triggers resolve()
	RootHere                  // the owning patch's attribute, read from its current snapshot
)

func (r Root) String() string {
	switch r {
	case RootCurrent:
		return "current"
	case RootPrior:
		return "prior"
	case RootHere:
		return "here"
	default:
		return "unknown"
	}
}

// Path is a parsed dotted attribute reference. Segments past the first name a nested
// traversal: for `prior.JoshuaTrees.count`, Name is "JoshuaTrees" and Rest is ["count"],
// meaning "resolve the JoshuaTrees child collection, then reduce it by count".
type Path struct {
	Root string // original root token, preserved for error messages
	Kind Root
	Name string
	Rest []string
}

// ParsePath parses a dotted path string. The root token must be one of
// current/prior/here; anything else is a bare attribute name on the acting entity's
// current snapshot (the common, unqualified case inside a handler body).
func ParsePath(s string) (*Path, error) {
	if s == "" {
		return nil, fmt.Errorf("resolve: empty path")
	}
	parts := strings.Split(s, ".")

	switch parts[0] {
	case "current":
		return &Path{Root: parts[0], Kind: RootCurrent, Name: at(parts, 1), Rest: tail(parts, 2)}, nil
	case "prior":
		return &Path{Root: parts[0], Kind: RootPrior, Name: at(parts, 1), Rest: tail(parts, 2)}, nil
	case "here":
		return &Path{Root: parts[0], Kind: RootHere, Name: at(parts, 1), Rest: tail(parts, 2)}, nil
	default:
		return &Path{Root: "current", Kind: RootCurrent, Name: parts[0], Rest: tail(parts, 1)}, nil
	}
}

func at(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func tail(parts []string, from int) []string {
	if from >= len(parts) {
		return nil
	}
	return append([]string{}, parts[from:]...)
}

func (p *Path) String() string {
	if len(p.Rest) == 0 {
		return fmt.Sprintf("%s.%s", p.Root, p.Name)
	}
	return fmt.Sprintf("%s.%s.%s", p.Root, p.Name, strings.Join(p.Rest, "."))
}
