// Package model is the external interface boundary between a compiled simulation
// definition and the runtime (§6 "CompiledModel"). It owns nothing about parsing or
// compiling a model's source language -- that lives entirely outside this repository's
// scope -- and instead defines the shape a compiler must produce: entity type
// descriptors, handler bytecode, unit declarations, and simulation settings.
package model

import (
	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/scheduler"
	"github.com/schmidtdse/josh-core/internal/value"
	"github.com/schmidtdse/josh-core/internal/vm"
)

// CompiledHandlerBody adapts a vm bytecode program into entity.HandlerBody, binding it to
// the World that supplies the engine, resolver, RNG, and vm.Host a fresh Machine needs per
// invocation (§4.2 "a fresh operand stack per handler invocation").
type CompiledHandlerBody struct {
	World   *scheduler.World
	Program []vm.Instruction
}

func (b *CompiledHandlerBody) Exec(e *entity.Entity, attrIndex int) (interface{}, error) {
	m := vm.New(b.World.Engine, b.World.SampleSize, b.World.RNG, b.World.Resolver, b.World, e)
	return m.Run(b.Program)
}

// CompiledSelector adapts a vm bytecode program into entity.Selector: a conditional
// handler's guard, expected to leave a single boolean Scalar on the stack (§3 "Handlers").
type CompiledSelector struct {
	World   *scheduler.World
	Program []vm.Instruction
}

func (s *CompiledSelector) Eval(e *entity.Entity) (bool, error) {
	m := vm.New(s.World.Engine, s.World.SampleSize, s.World.RNG, s.World.Resolver, s.World, e)
	v, err := m.Run(s.Program)
	if err != nil {
		return false, err
	}
	sc, ok := value.AsScalar(v)
	if !ok {
		return false, &value.TypeMismatchError{Op: "condition", Operand: v}
	}
	return sc.Kind == value.KindBool && sc.Bool, nil
}

var _ entity.HandlerBody = (*CompiledHandlerBody)(nil)
var _ entity.Selector = (*CompiledSelector)(nil)
