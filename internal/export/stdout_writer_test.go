package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/schmidtdse/josh-core/internal/value"
)

func TestStdoutWriterFormatsOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	w := &StdoutWriter{out: &buf}

	chunk := []Record{
		{EntityType: "Organism", EntityID: "a1", Step: 2, Replicate: 0,
			Values: map[string]value.Scalar{"height": value.NewDecimal(3, value.EMPTY)}},
	}
	if err := w.WriteChunk(context.Background(), chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "step=2") || !strings.Contains(out, "Organism/a1") || !strings.Contains(out, "height=") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}
}
