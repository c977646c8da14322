package export

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
)

// geotiffMagic tags the simplified GeoTIFF-flavored single-raster container this writer
// emits: magic, a uint32 count of values, then the float64 values in the order received (a
// record's variables in no fixed order). RequireStepOrVariable demands a {step} or
// {variable} token at build time, but the writer produces one file per pipeline: every
// value it receives, across all steps, variables and replicates, goes into that one file.
// A real GeoTIFF encoder was not available anywhere in the example corpus (see DESIGN.md);
// this keeps GeoTIFF's one-raster-per-file shape without claiming TIFF tag compliance.
var geotiffMagic = [4]byte{'J', 'G', 'T', '1'}

type GeoTIFFWriter struct {
	pathTemplate string
	step         int
	variable     string
	values       []float64
}

func NewGeoTIFFWriter(pathTemplate string) *GeoTIFFWriter {
	return &GeoTIFFWriter{pathTemplate: pathTemplate}
}

func (w *GeoTIFFWriter) WriteChunk(_ context.Context, chunk []Record) error {
	for _, rec := range chunk {
		w.step = rec.Step
		for name, v := range rec.Values {
			w.variable = name
			w.values = append(w.values, v.Float())
		}
	}
	return nil
}

// Close writes every accumulated value to one file, whose path is expanded from the last
// record's step and variable name with {replicate} as 0. GeoTIFF is a one-raster-per-file
// format, so unlike the streaming writers above, the actual write happens only here.
func (w *GeoTIFFWriter) Close() error {
	path := ExpandPath(w.pathTemplate, w.step, w.variable, 0)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: opening geotiff file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(geotiffMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(w.values))); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, w.values)
}
