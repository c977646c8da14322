package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
)

// StdoutWriter writes one line per record to an io.Writer (stdout by default), for quick
// inspection during development. §4.9 names `stdout` as a writer backend alongside the
// file-based formats.
type StdoutWriter struct {
	out io.Writer
}

func NewStdoutWriter() *StdoutWriter { return &StdoutWriter{out: os.Stdout} }

func (s *StdoutWriter) WriteChunk(_ context.Context, chunk []Record) error {
	for _, rec := range chunk {
		names := fieldNames(rec.Values)
		sort.Strings(names)
		fmt.Fprintf(s.out, "step=%d replicate=%d entity=%s/%s", rec.Step, rec.Replicate, rec.EntityType, rec.EntityID)
		for _, n := range names {
			fmt.Fprintf(s.out, " %s=%s", n, rec.Values[n].String())
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

func (s *StdoutWriter) Close() error { return nil }
