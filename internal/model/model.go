package model

import (
	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/scheduler"
	"github.com/schmidtdse/josh-core/internal/spatial"
	"github.com/schmidtdse/josh-core/internal/value"
	"github.com/schmidtdse/josh-core/internal/vm"
)

// HandlerDecl is one compiled `(attribute, event, state, selector?, body)` declaration
// (§3 "Handlers"). SelectorProgram is nil for an unconditional handler.
type HandlerDecl struct {
	Attribute       string
	Event           entity.Event
	StateTag        string
	SelectorProgram []vm.Instruction
	BodyProgram     []vm.Instruction
	Source          string
}

// EntityTypeDecl is one compiled entity type: its dense attribute list and every handler
// declared against it, in declaration order (§3 "Entities").
type EntityTypeDecl struct {
	Name       string
	Kind       entity.Kind
	Attributes []string
	Handlers   []HandlerDecl
}

// UnitConversion is one declared conversion edge (§4.1). Scale/Offset describe an affine
// transform `to = from*Scale + Offset`, covering both pure-scale (Offset=0) and
// temperature-style affine conversions.
type UnitConversion struct {
	From, To     string
	Scale, Offset float64
}

// PatchTypeDecl is one declared patch-type location rule (§4.6 "Patch-type selection
// rules"): either a wildcard fallback, or a rectangular row/col region. Real model
// compilers may describe richer regions (polygons, rasters); a rectangular bound is the
// smallest predicate shape that exercises SelectPatchType's first-match-wins semantics.
type PatchTypeDecl struct {
	TypeName                       string
	Wildcard                       bool
	MinRow, MaxRow, MinCol, MaxCol int
}

// CompiledModel is the full external boundary a model compiler must produce to drive a
// replicate (§6): entity type descriptors with their handler bytecode, the declared unit
// conversion graph, and patch-type location rules. Everything else (grid extents, step
// range, RNG seed, export targets) is simulation configuration, not model compilation
// output -- see internal/config.
type CompiledModel struct {
	EntityTypes     []EntityTypeDecl
	UnitConversions []UnitConversion
	PatchTypes      []PatchTypeDecl
}

// Build constructs a fresh scheduler.World from a CompiledModel: one entity.Type per
// declared entity type, with every handler wired to a CompiledHandlerBody/CompiledSelector
// bound back to the resulting World, and every unit conversion declared on engine's graph.
func Build(cm *CompiledModel, engine *value.Engine, sampleSize int, rng value.RNG) *scheduler.World {
	w := scheduler.NewWorld(engine, sampleSize, rng)

	for _, uc := range cm.UnitConversions {
		scale, offset := uc.Scale, uc.Offset
		engine.Conversions.Declare(uc.From, uc.To, func(m float64) float64 { return m*scale + offset })
	}

	for _, td := range cm.EntityTypes {
		t := entity.NewType(td.Name, td.Kind, td.Attributes)
		for _, hd := range td.Handlers {
			h := &entity.Handler{
				Attribute:   hd.Attribute,
				Event:       hd.Event,
				StateTag:    hd.StateTag,
				Conditional: hd.SelectorProgram != nil,
				Body:        &CompiledHandlerBody{World: w, Program: hd.BodyProgram},
				Source:      hd.Source,
			}
			if hd.SelectorProgram != nil {
				h.Selector = &CompiledSelector{World: w, Program: hd.SelectorProgram}
			}
			t.AddHandler(h)
		}
		w.Types[td.Name] = t
	}

	for _, pd := range cm.PatchTypes {
		if pd.Wildcard {
			w.PatchTypes = append(w.PatchTypes, spatial.PatchTypeRule{TypeName: pd.TypeName, Wildcard: true})
			continue
		}
		minRow, maxRow, minCol, maxCol := pd.MinRow, pd.MaxRow, pd.MinCol, pd.MaxCol
		w.PatchTypes = append(w.PatchTypes, spatial.PatchTypeRule{
			TypeName: pd.TypeName,
			Predicate: func(row, col int) bool {
				return row >= minRow && row <= maxRow && col >= minCol && col <= maxCol
			},
		})
	}
	return w
}
