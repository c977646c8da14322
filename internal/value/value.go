package value

import (
	"fmt"
)

// Kind tags the underlying Go representation a Scalar holds.
type Kind int

const (
	KindDecimal Kind = iota
	KindInt
	KindBool
	KindString
)

// Scalar is a single decimal, integer, boolean, or string value, always carrying units
// (invariant (a) in §3: even counts and booleans carry units, defaulting to EMPTY/"count").
type Scalar struct {
	Kind  Kind
	Num   float64
	Int   int64
	Bool  bool
	Str   string
	Units Unit
}

func NewDecimal(v float64, u Unit) Scalar { return Scalar{Kind: KindDecimal, Num: v, Units: u} }
func NewInt(v int64, u Unit) Scalar       { return Scalar{Kind: KindInt, Int: v, Units: u} }
func NewBool(v bool) Scalar               { return Scalar{Kind: KindBool, Bool: v, Units: EMPTY} }
func NewString(v string) Scalar           { return Scalar{Kind: KindString, Str: v, Units: EMPTY} }
func NewCount(v int64) Scalar             { return NewInt(v, SingleUnit("count")) }

// Float returns the scalar's numeric value regardless of whether it is stored as
// decimal or int; booleans coerce to 0/1. Strings panic-free return 0.
func (s Scalar) Float() float64 {
	switch s.Kind {
	case KindDecimal:
		return s.Num
	case KindInt:
		return float64(s.Int)
	case KindBool:
		if s.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// WithUnits returns a copy of s carrying u, leaving s untouched (arithmetic must never
// mutate operand units in place, per testable property 1).
func (s Scalar) WithUnits(u Unit) Scalar {
	s.Units = u
	return s
}

func (s Scalar) String() string {
	switch s.Kind {
	case KindDecimal:
		return fmt.Sprintf("%g %s", s.Num, s.Units)
	case KindInt:
		return fmt.Sprintf("%d %s", s.Int, s.Units)
	case KindBool:
		return fmt.Sprintf("%v", s.Bool)
	default:
		return s.Str
	}
}

// Distribution is either Realized (a finite ordered sequence of scalars sharing a unit)
// or Virtual (a parameterized law). Value is the sum type consumed by the expression
// machine: either a bare Scalar or a Distribution.
type Distribution interface {
	isDistribution()
	Units() Unit
}

// Realized is a finite, ordered sequence of scalars; invariant (b): all elements share units.
type Realized struct {
	Elements []Scalar
	Unit     Unit
}

func (Realized) isDistribution()    {}
func (r Realized) Units() Unit      { return r.Unit }
func NewRealized(u Unit, elems ...Scalar) Realized {
	return Realized{Elements: append([]Scalar{}, elems...), Unit: u}
}

// VirtualKind distinguishes the parametric family of a Virtual distribution.
type VirtualKind int

const (
	VirtualUniform VirtualKind = iota
	VirtualNormal
)

// Virtual is a parameterized distribution, sampled lazily (and only via a replicate RNG,
// invariant (c)).
type Virtual struct {
	Kind VirtualKind
	A, B float64 // uniform: [lo, hi]; normal: (mean, std)
	Unit Unit
}

func (Virtual) isDistribution() {}
func (v Virtual) Units() Unit   { return v.Unit }

func NewUniform(lo, hi float64, u Unit) Virtual {
	return Virtual{Kind: VirtualUniform, A: lo, B: hi, Unit: u}
}

func NewNormal(mean, std float64, u Unit) Virtual {
	return Virtual{Kind: VirtualNormal, A: mean, B: std, Unit: u}
}

// Value is the sum type the expression machine's operand stack holds: a bare Scalar or
// any Distribution. Using `any` mirrors §4.2's "operand stack of values" without forcing
// an interface method set onto Scalar (Scalar stays a plain struct, cheap to copy).
type Value interface{}

// AsScalar type-asserts v as a bare Scalar.
func AsScalar(v Value) (Scalar, bool) {
	s, ok := v.(Scalar)
	return s, ok
}

// AsDistribution type-asserts v as a Distribution (Realized or Virtual).
func AsDistribution(v Value) (Distribution, bool) {
	d, ok := v.(Distribution)
	return d, ok
}

// Autobox lifts a Scalar into a one-element Realized distribution; Distributions pass
// through unchanged. Used at arithmetic broadcast points, never at push (§4.2 ordering
// invariant: coercion happens at the point of operation).
func Autobox(v Value) Distribution {
	switch t := v.(type) {
	case Scalar:
		return NewRealized(t.Units, t)
	case Distribution:
		return t
	default:
		panic(fmt.Sprintf("value: cannot autobox %T", v))
	}
}
