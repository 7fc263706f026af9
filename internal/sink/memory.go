package sink

import (
	"context"
	"sync"
)

// Memory is an in-process Sink that retains every record it receives, in
// arrival order. It exists for tests that need to assert on record pairing
// and byte totals.
type Memory struct {
	mu     sync.Mutex
	starts []StartRecord
	ends   []EndRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Start(_ context.Context, rec StartRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, rec)
	return nil
}

func (m *Memory) End(_ context.Context, rec EndRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends = append(m.ends, rec)
	return nil
}

// Starts returns a copy of all start records received so far.
func (m *Memory) Starts() []StartRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StartRecord, len(m.starts))
	copy(out, m.starts)
	return out
}

// Ends returns a copy of all end records received so far.
func (m *Memory) Ends() []EndRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EndRecord, len(m.ends))
	copy(out, m.ends)
	return out
}
