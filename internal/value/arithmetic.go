package value

import (
	"math"
)

// RNG is the narrow randomness surface the value engine needs. It is satisfied by
// *rand.Rand (and hence by internal/rng.Stream) but declared here so this package never
// imports a concrete RNG type nor touches a process-global source (invariant (c)).
type RNG interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// Engine binds a conversion graph (and nothing else) so arithmetic can resolve
// cross-unit operations. It holds no mutable simulation state.
type Engine struct {
	Conversions *ConversionGraph
}

func NewEngine(conversions *ConversionGraph) *Engine {
	return &Engine{Conversions: conversions}
}

// reconcile converts right's magnitude into left's units if they differ, per the
// arithmetic contract in §4.1: cross-unit arithmetic converts the right operand to the
// left's units, or fails with UnitMismatchError.
func (e *Engine) reconcile(left Unit, rightMag float64, right Unit) (float64, error) {
	if left.Equal(right) || left.IsEmpty() || right.IsEmpty() {
		return rightMag, nil
	}
	if e.Conversions == nil {
		return 0, &UnitMismatchError{Left: left, Right: right}
	}
	converted, err := e.Conversions.Convert(rightMag, right.String(), left.String())
	if err != nil {
		return 0, &UnitMismatchError{Left: left, Right: right}
	}
	return converted, nil
}

// binaryScalar applies fn to the magnitudes of two scalars after unit reconciliation,
// and tags the result with resultUnits(left,right).
func (e *Engine) binaryScalar(
	left, right Scalar,
	fn func(a, b float64) float64,
	resultUnits func(l, r Unit) Unit,
) (Scalar, error) {
	rm, err := e.reconcile(left.Units, right.Float(), right.Units)
	if err != nil {
		return Scalar{}, err
	}
	out := fn(left.Float(), rm)
	return NewDecimal(out, resultUnits(left.Units, right.Units)), nil
}

func sameUnits(l, r Unit) Unit {
	if l.IsEmpty() {
		return r
	}
	return l
}

// broadcastBinary implements the Arithmetic contract of §4.1 across Scalar/Distribution
// combinations:
//   - scalar op scalar -> scalar
//   - virtual op scalar (or vice versa) -> realized: one draw from the virtual with the
//     scalar applied to it; the result is not kept virtual
//   - realized op realized (equal size) -> realized, pairwise
//   - realized op virtual (or vice versa) -> realized, by sampling the virtual to size
func (e *Engine) broadcastBinary(
	left, right Value,
	fn func(a, b float64) float64,
	resultUnits func(l, r Unit) Unit,
	rng RNG,
) (Value, error) {
	ls, lok := AsScalar(left)
	rs, rok := AsScalar(right)
	if lok && rok {
		return e.binaryScalar(ls, rs, fn, resultUnits)
	}

	ld := Autobox(left)
	rd := Autobox(right)

	if lv, ok := ld.(Virtual); ok {
		if rv, ok2 := rd.(Virtual); ok2 {
			// virtual op virtual: broadcast by combining parameters is underspecified;
			// resolve by sampling both at a nominal size of 1 and keeping the result virtual
			// is not well-defined either, so realize the right at size 1 and continue as
			// virtual op realized below, falling through to sample-to-size semantics.
			rd = NewRealized(rv.Unit, sampleVirtual(rv, 1, rng)...)
		}
		if rRealized, ok2 := rd.(Realized); ok2 {
			// virtual op realized: sample virtual to realized's size, then pairwise.
			sampled := sampleVirtual(lv, len(rRealized.Elements), rng)
			return e.pairwiseRealized(NewRealized(lv.Unit, sampled...), rRealized, fn, resultUnits)
		}
		// virtual op scalar: the virtual is realized as a single draw and the scalar is
		// applied to it, giving a one-element Realized result (see scalarAgainstVirtual).
		return e.scalarAgainstVirtual(lv, rs, fn, resultUnits, rng, true)
	}
	if rv, ok := rd.(Virtual); ok {
		return e.scalarAgainstVirtual(rv, ls, fn, resultUnits, rng, false)
	}

	lRealized := ld.(Realized)
	rRealized := rd.(Realized)
	if len(lRealized.Elements) == len(rRealized.Elements) {
		return e.pairwiseRealized(lRealized, rRealized, fn, resultUnits)
	}
	if len(rRealized.Elements) == 1 {
		return e.broadcastScalarIntoRealized(lRealized, rRealized.Elements[0], fn, resultUnits)
	}
	if len(lRealized.Elements) == 1 {
		return e.broadcastScalarIntoRealized(rRealized, lRealized.Elements[0], func(a, b float64) float64 { return fn(b, a) }, resultUnits)
	}
	return nil, &TypeMismatchError{Op: "broadcast", Operand: right}
}

func (e *Engine) pairwiseRealized(l, r Realized, fn func(a, b float64) float64, resultUnits func(l, r Unit) Unit) (Value, error) {
	out := make([]Scalar, len(l.Elements))
	var outUnit Unit
	for i := range l.Elements {
		s, err := e.binaryScalar(l.Elements[i], r.Elements[i], fn, resultUnits)
		if err != nil {
			return nil, err
		}
		out[i] = s
		outUnit = s.Units
	}
	return NewRealized(outUnit, out...), nil
}

func (e *Engine) broadcastScalarIntoRealized(d Realized, scalar Scalar, fn func(a, b float64) float64, resultUnits func(l, r Unit) Unit) (Value, error) {
	out := make([]Scalar, len(d.Elements))
	var outUnit Unit
	for i, el := range d.Elements {
		s, err := e.binaryScalar(el, scalar, fn, resultUnits)
		if err != nil {
			return nil, err
		}
		out[i] = s
		outUnit = s.Units
	}
	return NewRealized(outUnit, out...), nil
}

// scalarAgainstVirtual realizes a one-element sample from the virtual distribution and
// broadcasts the scalar across it, yielding a Realized result. leftIsVirtual controls
// operand order for non-commutative fn.
func (e *Engine) scalarAgainstVirtual(v Virtual, s Scalar, fn func(a, b float64) float64, resultUnits func(l, r Unit) Unit, rng RNG, leftIsVirtual bool) (Value, error) {
	const defaultSampleSize = 1
	samples := sampleVirtual(v, defaultSampleSize, rng)
	realized := NewRealized(v.Unit, samples...)
	if leftIsVirtual {
		return e.broadcastScalarIntoRealized(realized, s, fn, resultUnits)
	}
	return e.broadcastScalarIntoRealized(realized, s, func(a, b float64) float64 { return fn(b, a) }, resultUnits)
}

func sampleVirtual(v Virtual, n int, rng RNG) []Scalar {
	out := make([]Scalar, n)
	for i := 0; i < n; i++ {
		var mag float64
		switch v.Kind {
		case VirtualUniform:
			mag = v.A + rng.Float64()*(v.B-v.A)
		case VirtualNormal:
			mag = v.A + rng.NormFloat64()*v.B
		}
		out[i] = NewDecimal(mag, v.Unit)
	}
	return out
}

// Add implements the `add` operation.
func (e *Engine) Add(left, right Value, rng RNG) (Value, error) {
	return e.broadcastBinary(left, right, func(a, b float64) float64 { return a + b }, sameUnits, rng)
}

func (e *Engine) Subtract(left, right Value, rng RNG) (Value, error) {
	return e.broadcastBinary(left, right, func(a, b float64) float64 { return a - b }, sameUnits, rng)
}

func (e *Engine) Multiply(left, right Value, rng RNG) (Value, error) {
	unitsFn := func(l, r Unit) Unit { return l.Multiply(r) }
	return e.broadcastBinary(left, right, func(a, b float64) float64 { return a * b }, unitsFn, rng)
}

func (e *Engine) Divide(left, right Value, rng RNG) (Value, error) {
	unitsFn := func(l, r Unit) Unit { return l.Divide(r) }
	return e.broadcastBinary(left, right, func(a, b float64) float64 { return a / b }, unitsFn, rng)
}

func (e *Engine) Pow(base, exp Value, rng RNG) (Value, error) {
	bs, bok := AsScalar(base)
	es, eok := AsScalar(exp)
	if bok && eok {
		return NewDecimal(math.Pow(bs.Float(), es.Float()), bs.Units.Pow(es.Float())), nil
	}
	unitsFn := func(l, r Unit) Unit { return l }
	return e.broadcastBinary(base, exp, math.Pow, unitsFn, rng)
}

func boolResultUnits(Unit, Unit) Unit { return EMPTY }

func (e *Engine) compare(left, right Value, cmp func(a, b float64) bool, rng RNG) (Value, error) {
	ls, lok := AsScalar(left)
	rs, rok := AsScalar(right)
	if lok && rok {
		rm, err := e.reconcile(ls.Units, rs.Float(), rs.Units)
		if err != nil {
			return nil, err
		}
		return NewBool(cmp(ls.Float(), rm)), nil
	}
	fn := func(a, b float64) float64 {
		if cmp(a, b) {
			return 1
		}
		return 0
	}
	v, err := e.broadcastBinary(left, right, fn, boolResultUnits, rng)
	if err != nil {
		return nil, err
	}
	if d, ok := v.(Realized); ok {
		out := make([]Scalar, len(d.Elements))
		for i, s := range d.Elements {
			out[i] = NewBool(s.Float() != 0)
		}
		return NewRealized(EMPTY, out...), nil
	}
	return v, nil
}

func (e *Engine) Eq(l, r Value, rng RNG) (Value, error) {
	return e.compare(l, r, func(a, b float64) bool { return a == b }, rng)
}
func (e *Engine) Neq(l, r Value, rng RNG) (Value, error) {
	return e.compare(l, r, func(a, b float64) bool { return a != b }, rng)
}
func (e *Engine) Gt(l, r Value, rng RNG) (Value, error) {
	return e.compare(l, r, func(a, b float64) bool { return a > b }, rng)
}
func (e *Engine) Gteq(l, r Value, rng RNG) (Value, error) {
	return e.compare(l, r, func(a, b float64) bool { return a >= b }, rng)
}
func (e *Engine) Lt(l, r Value, rng RNG) (Value, error) {
	return e.compare(l, r, func(a, b float64) bool { return a < b }, rng)
}
func (e *Engine) Lteq(l, r Value, rng RNG) (Value, error) {
	return e.compare(l, r, func(a, b float64) bool { return a <= b }, rng)
}

func boolOf(s Scalar) bool {
	if s.Kind == KindBool {
		return s.Bool
	}
	return s.Float() != 0
}

func (e *Engine) And(l, r Value) (Value, error) {
	ls, ok1 := AsScalar(l)
	rs, ok2 := AsScalar(r)
	if !ok1 || !ok2 {
		return nil, &TypeMismatchError{Op: "and", Operand: l}
	}
	return NewBool(boolOf(ls) && boolOf(rs)), nil
}

func (e *Engine) Or(l, r Value) (Value, error) {
	ls, ok1 := AsScalar(l)
	rs, ok2 := AsScalar(r)
	if !ok1 || !ok2 {
		return nil, &TypeMismatchError{Op: "or", Operand: l}
	}
	return NewBool(boolOf(ls) || boolOf(rs)), nil
}

func (e *Engine) Xor(l, r Value) (Value, error) {
	ls, ok1 := AsScalar(l)
	rs, ok2 := AsScalar(r)
	if !ok1 || !ok2 {
		return nil, &TypeMismatchError{Op: "xor", Operand: l}
	}
	return NewBool(boolOf(ls) != boolOf(rs)), nil
}

// unary applies fn to every magnitude in v, preserving (or transforming) units per unitsFn.
func (e *Engine) unary(v Value, fn func(float64) float64, unitsFn func(Unit) Unit) Value {
	if s, ok := AsScalar(v); ok {
		return NewDecimal(fn(s.Float()), unitsFn(s.Units))
	}
	d := Autobox(v)
	switch t := d.(type) {
	case Realized:
		out := make([]Scalar, len(t.Elements))
		for i, s := range t.Elements {
			out[i] = NewDecimal(fn(s.Float()), unitsFn(s.Units))
		}
		return NewRealized(unitsFn(t.Unit), out...)
	case Virtual:
		// Applying a pointwise transform to a virtual law's parameters is defined only for
		// location/scale-preserving transforms, so fn is evaluated once at the law's center
		// (uniform midpoint, normal mean) and the result is a scalar, not a draw.
		center := t.A
		if t.Kind == VirtualUniform {
			center = (t.A + t.B) / 2
		}
		return NewDecimal(fn(center), unitsFn(t.Unit))
	}
	panic("value: unreachable")
}

func identityUnits(u Unit) Unit { return u }

func (e *Engine) Abs(v Value) Value   { return e.unary(v, math.Abs, identityUnits) }
func (e *Engine) Log10(v Value) Value { return e.unary(v, math.Log10, func(Unit) Unit { return EMPTY }) }
func (e *Engine) Ln(v Value) Value    { return e.unary(v, math.Log, func(Unit) Unit { return EMPTY }) }
func (e *Engine) Ceil(v Value) Value  { return e.unary(v, math.Ceil, identityUnits) }
func (e *Engine) Floor(v Value) Value { return e.unary(v, math.Floor, identityUnits) }
func (e *Engine) Round(v Value) Value { return e.unary(v, math.Round, identityUnits) }

// flattenToScalars flattens a (possibly nested) distribution down to plain scalars, per
// the "nested distributions, flatten then reduce" reduction rule.
func flattenToScalars(v Value, sampleSize int, rng RNG) []Scalar {
	switch t := v.(type) {
	case Scalar:
		return []Scalar{t}
	case Realized:
		var out []Scalar
		for _, el := range t.Elements {
			out = append(out, flattenToScalars(el, sampleSize, rng)...)
		}
		return out
	case Virtual:
		return sampleVirtual(t, sampleSize, rng)
	default:
		return nil
	}
}

// ReductionEngine carries the simulation-configured virtual-sampling size used by
// reductions over virtual distributions (§4.1 "Reduction semantics").
type ReductionEngine struct {
	*Engine
	SampleSize int
}

func (e *Engine) Reductions(sampleSize int) *ReductionEngine {
	return &ReductionEngine{Engine: e, SampleSize: sampleSize}
}

func (re *ReductionEngine) scalars(v Value, rng RNG) ([]Scalar, Unit) {
	flat := flattenToScalars(v, re.SampleSize, rng)
	u := EMPTY
	if len(flat) > 0 {
		u = flat[0].Units
	}
	return flat, u
}

func (re *ReductionEngine) Sum(v Value, rng RNG) Scalar {
	flat, u := re.scalars(v, rng)
	total := 0.0
	for _, s := range flat {
		total += s.Float()
	}
	return NewDecimal(total, u)
}

func (re *ReductionEngine) Mean(v Value, rng RNG) Scalar {
	flat, u := re.scalars(v, rng)
	if len(flat) == 0 {
		return NewDecimal(0, u)
	}
	total := 0.0
	for _, s := range flat {
		total += s.Float()
	}
	return NewDecimal(total/float64(len(flat)), u)
}

// Std computes the *sample* standard deviation (divide by n-1), per §4.1.
func (re *ReductionEngine) Std(v Value, rng RNG) Scalar {
	flat, u := re.scalars(v, rng)
	n := len(flat)
	if n < 2 {
		return NewDecimal(0, u)
	}
	mean := re.Mean(v, rng).Float()
	var sq float64
	for _, s := range flat {
		d := s.Float() - mean
		sq += d * d
	}
	return NewDecimal(math.Sqrt(sq/float64(n-1)), u)
}

func (re *ReductionEngine) Min(v Value, rng RNG) Scalar {
	flat, u := re.scalars(v, rng)
	if len(flat) == 0 {
		return NewDecimal(0, u)
	}
	m := flat[0].Float()
	for _, s := range flat[1:] {
		if s.Float() < m {
			m = s.Float()
		}
	}
	return NewDecimal(m, u)
}

func (re *ReductionEngine) Max(v Value, rng RNG) Scalar {
	flat, u := re.scalars(v, rng)
	if len(flat) == 0 {
		return NewDecimal(0, u)
	}
	m := flat[0].Float()
	for _, s := range flat[1:] {
		if s.Float() > m {
			m = s.Float()
		}
	}
	return NewDecimal(m, u)
}

func (re *ReductionEngine) Count(v Value, rng RNG) Scalar {
	flat, _ := re.scalars(v, rng)
	return NewCount(int64(len(flat)))
}

// Cast rewrites or converts a value's unit. force=true rewrites the tag without changing
// magnitude; force=false performs a real conversion via the declared graph.
func (e *Engine) Cast(v Value, target Unit, force bool) (Value, error) {
	apply := func(s Scalar) (Scalar, error) {
		if force {
			return s.WithUnits(target), nil
		}
		converted, err := e.reconcile(target, s.Float(), s.Units)
		if err != nil {
			return Scalar{}, err
		}
		return NewDecimal(converted, target), nil
	}
	if s, ok := AsScalar(v); ok {
		return apply(s)
	}
	switch t := Autobox(v).(type) {
	case Realized:
		out := make([]Scalar, len(t.Elements))
		for i, el := range t.Elements {
			s, err := apply(el)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return NewRealized(target, out...), nil
	case Virtual:
		t.Unit = target
		return t, nil
	}
	panic("value: unreachable")
}

// Concat flattens both operands to scalars and returns them as one realized distribution:
// a scalar contributes itself, a realized distribution its elements, and a virtual
// distribution a single draw.
func (e *Engine) Concat(left, right Value, rng RNG) (Value, error) {
	lFlat := flattenToScalars(left, 1, rng)
	rFlat := flattenToScalars(right, 1, rng)
	u := EMPTY
	if len(lFlat) > 0 {
		u = lFlat[0].Units
	} else if len(rFlat) > 0 {
		u = rFlat[0].Units
	}
	return NewRealized(u, append(append([]Scalar{}, lFlat...), rFlat...)...), nil
}

// Sample draws n elements from v. withReplacement=false requires n <= size, else
// SampleSizeError. Per the Open Question in §9, this implementation samples from the
// combined (virtual-realized-to-size then concatenated) population first, then filters
// without replacement from that concrete population -- sample first, filter second.
func (e *Engine) Sample(v Value, n int, withReplacement bool, rng RNG) (Value, error) {
	d := Autobox(v)
	var pool []Scalar
	var u Unit
	switch t := d.(type) {
	case Realized:
		pool = append(pool, t.Elements...)
		u = t.Unit
	case Virtual:
		size := n
		if withReplacement {
			size = n
		}
		pool = sampleVirtual(t, size, rng)
		u = t.Unit
		if withReplacement {
			return NewRealized(u, pool...), nil
		}
	}

	if !withReplacement {
		if n > len(pool) {
			return nil, &SampleSizeError{Requested: n, Available: len(pool)}
		}
		shuffled := append([]Scalar{}, pool...)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		return NewRealized(u, shuffled[:n]...), nil
	}

	out := make([]Scalar, n)
	for i := range out {
		out[i] = pool[rng.Intn(len(pool))]
	}
	return NewRealized(u, out...), nil
}

// Bound clamps every magnitude in v to [lower, upper], either bound optional (nil skips it).
func (e *Engine) Bound(v Value, lower, upper *float64) Value {
	fn := func(x float64) float64 {
		if lower != nil && x < *lower {
			x = *lower
		}
		if upper != nil && x > *upper {
			x = *upper
		}
		return x
	}
	return e.unary(v, fn, identityUnits)
}

// MapMethod selects the interpolation law for Map.
type MapMethod int

const (
	MapLinear MapMethod = iota
	MapSigmoid
	MapQuadratic
)

// Map projects operand from [fromLo,fromHi] to [toLo,toHi] via method. b controls
// direction/orientation for sigmoid and quadratic, per §4.1.
func (e *Engine) Map(v Value, fromLo, fromHi, toLo, toHi float64, method MapMethod, b bool) Value {
	fn := func(x float64) float64 {
		t := (x - fromLo) / (fromHi - fromLo)
		switch method {
		case MapLinear:
			return toLo + t*(toHi-toLo)
		case MapSigmoid:
			// logistic centered at the domain midpoint (t=0.5), steepness fixed at 10 for a
			// pronounced but smooth transition across the unit interval.
			const steepness = 10.0
			x0 := 0.5
			sig := 1 / (1 + math.Exp(-steepness*(t-x0)))
			if !b {
				sig = 1 - sig
			}
			return toLo + sig*(toHi-toLo)
		case MapQuadratic:
			// parabola vertexed at the domain midpoint; b=true -> vertex maps to toHi.
			d := t - 0.5
			frac := 1 - 4*d*d // 1 at t=0.5, 0 at t=0 and t=1
			if b {
				return toLo + frac*(toHi-toLo)
			}
			return toHi - frac*(toHi-toLo)
		}
		return x
	}
	return e.unary(v, fn, identityUnits)
}

func (e *Engine) RandUniform(lo, hi float64, u Unit, rng RNG) Scalar {
	return NewDecimal(lo+rng.Float64()*(hi-lo), u)
}

func (e *Engine) RandNorm(mean, std float64, u Unit, rng RNG) Scalar {
	return NewDecimal(mean+rng.NormFloat64()*std, u)
}
