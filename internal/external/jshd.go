// Package external implements read-only precomputed grid resources (§6): external data
// (e.g. climate rasters) exposed as `values_at(geometry) -> Distribution`, backed by the
// `.jshd` binary format.
package external

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/schmidtdse/josh-core/internal/spatial"
	"github.com/schmidtdse/josh-core/internal/value"
)

// jshdMagic is the fixed 4-byte tag at the start of every .jshd file (§6).
var jshdMagic = [4]byte{'J', 'S', 'H', 'D'}

// Header is the fixed-size .jshd file header (§6):
//
//	magic    [4]byte  "JSHD"
//	version  uint32
//	unitsLen uint32
//	units    [unitsLen]byte
//	minStep  int64
//	maxStep  int64
//	rows     uint32
//	cols     uint32
//	default  float64
//
// followed by rows*cols*(maxStep-minStep+1) float64 values in row-major,
// step-major order, all little-endian.
type Header struct {
	Version  uint32
	Units    string
	MinStep  int64
	MaxStep  int64
	Rows     uint32
	Cols     uint32
	Default  float64
}

// Grid is a read-only precomputed external resource loaded from a .jshd file.
type Grid struct {
	Header Header
	Geo    *spatial.Grid
	values []float64 // [step-minStep][row][col], flattened row-major per step
}

// Load reads a full .jshd file into memory. The format is small enough (one grid per
// external variable, not a live simulation state) to hold wholly resident, matching how
// the teacher's grid_world builds its full lattice up front rather than streaming it.
func Load(path string, geo *spatial.Grid) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("external: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("external: reading magic: %w", err)
	}
	if magic != jshdMagic {
		return nil, fmt.Errorf("external: %s is not a .jshd file (bad magic)", path)
	}

	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return nil, err
	}
	var unitsLen uint32
	if err := binary.Read(r, binary.LittleEndian, &unitsLen); err != nil {
		return nil, err
	}
	unitsBytes := make([]byte, unitsLen)
	if _, err := io.ReadFull(r, unitsBytes); err != nil {
		return nil, err
	}
	h.Units = string(unitsBytes)

	if err := binary.Read(r, binary.LittleEndian, &h.MinStep); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.MaxStep); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Rows); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Cols); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Default); err != nil {
		return nil, err
	}

	steps := h.MaxStep - h.MinStep + 1
	total := steps * int64(h.Rows) * int64(h.Cols)
	values := make([]float64, total)
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return nil, fmt.Errorf("external: reading %d values from %s: %w", total, path, err)
	}

	return &Grid{Header: h, Geo: geo, values: values}, nil
}

// ValuesAt returns the distribution of values covering geometry at step, per §6
// "values_at(geometry) -> Distribution". For a single point this is a one-element
// Realized distribution; points outside the file's declared step range or grid bounds
// fall back to the file's configured default.
func (g *Grid) ValuesAt(p spatial.Point, step int64) value.Distribution {
	unit := value.SingleUnit(g.Header.Units)
	if g.Header.Units == "" {
		unit = value.EMPTY
	}

	if step < g.Header.MinStep || step > g.Header.MaxStep {
		return value.NewRealized(unit, value.NewDecimal(g.Header.Default, unit))
	}

	row, col := g.Geo.CellOf(p)
	if row < 0 || row >= int(g.Header.Rows) || col < 0 || col >= int(g.Header.Cols) {
		return value.NewRealized(unit, value.NewDecimal(g.Header.Default, unit))
	}

	stepIdx := step - g.Header.MinStep
	idx := stepIdx*int64(g.Header.Rows)*int64(g.Header.Cols) + int64(row)*int64(g.Header.Cols) + int64(col)
	return value.NewRealized(unit, value.NewDecimal(g.values[idx], unit))
}
