// Package vm implements the stack-based expression machine that interprets compiled
// handler bodies (§4.2): a push-down operand stack over value.Value, named locals, and
// delegation to value.Engine/value.ReductionEngine for arithmetic and reductions.
package vm

import (
	"fmt"

	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/resolve"
	"github.com/schmidtdse/josh-core/internal/value"
)

// Host supplies the two operations a handler body can trigger beyond pure value
// computation: entity creation and spatial queries (§4.2, §4.6). Both need access to the
// live entity graph the vm package otherwise has no reason to know about.
type Host interface {
	CreateEntities(subject *entity.Entity, typeName string, count int) (value.EntityCollection, error)
	SpatialQuery(subject *entity.Entity, radiusMeters float64, path *resolve.Path) (value.Value, error)
}

// CastOperand parameterizes OpCast.
type CastOperand struct {
	Target value.Unit
	Force  bool
}

// SampleOperand parameterizes OpSample.
type SampleOperand struct {
	N               int
	WithReplacement bool
}

// BoundOperand parameterizes OpBound.
type BoundOperand struct {
	Lower, Upper *float64
}

// MapOperand parameterizes OpMap.
type MapOperand struct {
	FromLo, FromHi, ToLo, ToHi float64
	Method                     value.MapMethod
	B                          bool
}

// RandOperand parameterizes OpRandUniform/OpRandNorm.
type RandOperand struct {
	A, B  float64
	Units value.Unit
}

// CreateEntityOperand parameterizes OpCreateEntity.
type CreateEntityOperand struct {
	TypeName string
	Count    int
}

// SpatialQueryOperand parameterizes OpSpatialQuery.
type SpatialQueryOperand struct {
	RadiusMeters float64
	Path         *resolve.Path
}

// Machine executes one compiled handler body against one subject entity. A fresh Machine
// is used per Exec call; it carries no state across substeps (§4.2 "a fresh operand stack
// per handler invocation").
type Machine struct {
	stack   []value.Value
	locals  map[string]value.Value
	ended   bool
	result  value.Value

	engine     *value.Engine
	reductions *value.ReductionEngine
	rng        value.RNG
	resolver   *resolve.Resolver
	host       Host
	subject    *entity.Entity
}

// New constructs a Machine bound to one subject entity for one handler execution.
func New(engine *value.Engine, sampleSize int, rng value.RNG, resolver *resolve.Resolver, host Host, subject *entity.Entity) *Machine {
	return &Machine{
		locals:     make(map[string]value.Value),
		engine:     engine,
		reductions: engine.Reductions(sampleSize),
		rng:        rng,
		resolver:   resolver,
		host:       host,
		subject:    subject,
	}
}

func (m *Machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop(op OpCode) (value.Value, error) {
	if len(m.stack) == 0 {
		return nil, &StackUnderflowError{Op: op}
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

// IsEnded reports whether the program has executed an OpEnd instruction.
func (m *Machine) IsEnded() bool { return m.ended }

// GetResult returns the value left by OpEnd. Valid only after IsEnded.
func (m *Machine) GetResult() value.Value { return m.result }

// Run executes program from instruction 0 until OpEnd or an error. Condition/branch
// operands are absolute instruction indices, resolved at compile time.
func (m *Machine) Run(program []Instruction) (value.Value, error) {
	pc := 0
	for pc < len(program) {
		instr := program[pc]
		next, err := m.step(instr)
		if err != nil {
			return nil, fmt.Errorf("vm: instruction %d: %w", pc, err)
		}
		if m.ended {
			return m.result, nil
		}
		if next >= 0 {
			pc = next
			continue
		}
		pc++
	}
	return m.result, nil
}

// step executes one instruction, returning the next pc (-1 means "pc+1", the default).
func (m *Machine) step(instr Instruction) (int, error) {
	switch instr.Op {
	case OpPush:
		m.push(instr.Operand)
		return -1, nil

	case OpLoad:
		path, ok := instr.Operand.(*resolve.Path)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, present, err := m.resolver.Eval(path, m.subject)
		if err != nil {
			return -1, err
		}
		if !present {
			m.push(nil)
		} else {
			m.push(v)
		}
		return -1, nil

	case OpSaveLocal:
		name, ok := instr.Operand.(string)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		m.locals[name] = v
		return -1, nil

	case OpLoadLocal:
		name, ok := instr.Operand.(string)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, ok := m.locals[name]
		if !ok {
			return -1, &UnknownLocalError{Name: name}
		}
		m.push(v)
		return -1, nil

	case OpAdd, OpSub, OpMul, OpDiv, OpPow,
		OpEq, OpNeq, OpGt, OpGteq, OpLt, OpLteq:
		return -1, m.binaryOp(instr.Op)

	case OpAnd, OpOr, OpXor:
		return -1, m.boolOp(instr.Op)

	case OpAbs, OpLog10, OpLn, OpCeil, OpFloor, OpRound:
		return -1, m.unaryOp(instr.Op)

	case OpSum, OpMean, OpStd, OpMin, OpMax, OpCount:
		return -1, m.reductionOp(instr.Op)

	case OpCast:
		op, ok := instr.Operand.(CastOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		out, err := m.engine.Cast(v, op.Target, op.Force)
		if err != nil {
			return -1, err
		}
		m.push(out)
		return -1, nil

	case OpConcat:
		r, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		l, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		out, err := m.engine.Concat(l, r, m.rng)
		if err != nil {
			return -1, err
		}
		m.push(out)
		return -1, nil

	case OpSample:
		op, ok := instr.Operand.(SampleOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		out, err := m.engine.Sample(v, op.N, op.WithReplacement, m.rng)
		if err != nil {
			return -1, err
		}
		m.push(out)
		return -1, nil

	case OpBound:
		op, ok := instr.Operand.(BoundOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		m.push(m.engine.Bound(v, op.Lower, op.Upper))
		return -1, nil

	case OpMap:
		op, ok := instr.Operand.(MapOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		m.push(m.engine.Map(v, op.FromLo, op.FromHi, op.ToLo, op.ToHi, op.Method, op.B))
		return -1, nil

	case OpRandUniform:
		op, ok := instr.Operand.(RandOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		m.push(m.engine.RandUniform(op.A, op.B, op.Units, m.rng))
		return -1, nil

	case OpRandNorm:
		op, ok := instr.Operand.(RandOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		m.push(m.engine.RandNorm(op.A, op.B, op.Units, m.rng))
		return -1, nil

	case OpCondition:
		target, ok := instr.Operand.(int)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		v, err := m.pop(instr.Op)
		if err != nil {
			return -1, err
		}
		s, ok := value.AsScalar(v)
		if !ok {
			return -1, &value.TypeMismatchError{Op: "condition", Operand: v}
		}
		if !s.Bool {
			return target, nil
		}
		return -1, nil

	case OpBranch:
		target, ok := instr.Operand.(int)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		return target, nil

	case OpCreateEntity:
		op, ok := instr.Operand.(CreateEntityOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		coll, err := m.host.CreateEntities(m.subject, op.TypeName, op.Count)
		if err != nil {
			return -1, err
		}
		m.push(coll)
		return -1, nil

	case OpSpatialQuery:
		op, ok := instr.Operand.(SpatialQueryOperand)
		if !ok {
			return -1, &BadOperandError{Op: instr.Op}
		}
		out, err := m.host.SpatialQuery(m.subject, op.RadiusMeters, op.Path)
		if err != nil {
			return -1, err
		}
		m.push(out)
		return -1, nil

	case OpEnd:
		if len(m.stack) > 0 {
			m.result, _ = m.pop(instr.Op)
		}
		m.ended = true
		return -1, nil

	default:
		return -1, fmt.Errorf("vm: unknown opcode %d", instr.Op)
	}
}

func (m *Machine) binaryOp(op OpCode) error {
	r, err := m.pop(op)
	if err != nil {
		return err
	}
	l, err := m.pop(op)
	if err != nil {
		return err
	}
	var out value.Value
	switch op {
	case OpAdd:
		out, err = m.engine.Add(l, r, m.rng)
	case OpSub:
		out, err = m.engine.Subtract(l, r, m.rng)
	case OpMul:
		out, err = m.engine.Multiply(l, r, m.rng)
	case OpDiv:
		out, err = m.engine.Divide(l, r, m.rng)
	case OpPow:
		out, err = m.engine.Pow(l, r, m.rng)
	case OpEq:
		out, err = m.engine.Eq(l, r, m.rng)
	case OpNeq:
		out, err = m.engine.Neq(l, r, m.rng)
	case OpGt:
		out, err = m.engine.Gt(l, r, m.rng)
	case OpGteq:
		out, err = m.engine.Gteq(l, r, m.rng)
	case OpLt:
		out, err = m.engine.Lt(l, r, m.rng)
	case OpLteq:
		out, err = m.engine.Lteq(l, r, m.rng)
	}
	if err != nil {
		return err
	}
	m.push(out)
	return nil
}

func (m *Machine) boolOp(op OpCode) error {
	r, err := m.pop(op)
	if err != nil {
		return err
	}
	l, err := m.pop(op)
	if err != nil {
		return err
	}
	var out value.Value
	switch op {
	case OpAnd:
		out, err = m.engine.And(l, r)
	case OpOr:
		out, err = m.engine.Or(l, r)
	case OpXor:
		out, err = m.engine.Xor(l, r)
	}
	if err != nil {
		return err
	}
	m.push(out)
	return nil
}

func (m *Machine) unaryOp(op OpCode) error {
	v, err := m.pop(op)
	if err != nil {
		return err
	}
	var out value.Value
	switch op {
	case OpAbs:
		out = m.engine.Abs(v)
	case OpLog10:
		out = m.engine.Log10(v)
	case OpLn:
		out = m.engine.Ln(v)
	case OpCeil:
		out = m.engine.Ceil(v)
	case OpFloor:
		out = m.engine.Floor(v)
	case OpRound:
		out = m.engine.Round(v)
	}
	m.push(out)
	return nil
}

func (m *Machine) reductionOp(op OpCode) error {
	v, err := m.pop(op)
	if err != nil {
		return err
	}
	var out value.Scalar
	switch op {
	case OpSum:
		out = m.reductions.Sum(v, m.rng)
	case OpMean:
		out = m.reductions.Mean(v, m.rng)
	case OpStd:
		out = m.reductions.Std(v, m.rng)
	case OpMin:
		out = m.reductions.Min(v, m.rng)
	case OpMax:
		out = m.reductions.Max(v, m.rng)
	case OpCount:
		out = m.reductions.Count(v, m.rng)
	}
	m.push(out)
	return nil
}
