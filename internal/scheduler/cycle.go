package scheduler

import (
	"fmt"
	"strings"

	"github.com/schmidtdse/josh-core/internal/entity"
)

// resolveKey identifies one in-flight (entity, attribute) resolution on the active stack.
type resolveKey struct {
	e    *entity.Entity
	attr string
}

func (k resolveKey) String() string {
	return fmt.Sprintf("%s#%s.%s", k.e.Kind, k.e.ID, k.attr)
}

// CycleDetectedError reports a dependency cycle found while lazily resolving attributes
// (§4.5 "lazy resolve() with an active-resolution stack"). Path always has at least two
// entries: the repeated key appears at both ends, e.g. `Organism#a1.height ->
// Organism#a1.growth -> Organism#a1.height`.
type CycleDetectedError struct {
	Path []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

// resolutionStack tracks the in-flight resolve() chain for one substep, per world (shared
// across entities since a cycle can span entities via current.Other.attr references).
type resolutionStack struct {
	stack []resolveKey
	index map[resolveKey]int
}

func newResolutionStack() *resolutionStack {
	return &resolutionStack{index: make(map[resolveKey]int)}
}

// push records k as in-flight. If k is already on the stack, it returns a CycleDetectedError
// describing the loop from k's first occurrence back to k.
func (s *resolutionStack) push(k resolveKey) error {
	if pos, ok := s.index[k]; ok {
		var path []string
		for _, e := range s.stack[pos:] {
			path = append(path, e.String())
		}
		path = append(path, k.String())
		return &CycleDetectedError{Path: path}
	}
	s.index[k] = len(s.stack)
	s.stack = append(s.stack, k)
	return nil
}

func (s *resolutionStack) pop() {
	last := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.index, last)
}
