package export

import (
	"context"
	"sync"
)

// MemoryWriter accumulates every chunk in process memory, for tests and for small
// replicate runs where spilling to a file or object store is unnecessary (§4.9 names
// `memory` as a writer backend).
type MemoryWriter struct {
	mu      sync.Mutex
	Records []Record
}

func NewMemoryWriter() *MemoryWriter { return &MemoryWriter{} }

func (m *MemoryWriter) WriteChunk(_ context.Context, chunk []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, chunk...)
	return nil
}

func (m *MemoryWriter) Close() error { return nil }

// Snapshot returns a copy of every record written so far.
func (m *MemoryWriter) Snapshot() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record{}, m.Records...)
}
