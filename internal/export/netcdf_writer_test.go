package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/schmidtdse/josh-core/internal/value"
)

func TestNetCDFWriterWritesMagicAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jnc")
	w, err := NewNetCDFWriter(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunk := []Record{
		{Step: 0, Replicate: 1, EntityID: "a1", Values: map[string]value.Scalar{"height": value.NewDecimal(3, value.EMPTY)}},
	}
	if err := w.WriteChunk(context.Background(), chunk); err != nil {
		t.Fatalf("unexpected error writing chunk: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading output: %v", err)
	}
	if len(contents) < 4 || string(contents[:4]) != "JNC1" {
		t.Fatalf("expected file to begin with the JNC1 magic, got %q", contents)
	}
}
