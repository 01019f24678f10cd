package store

import (
	"context"
	"sync"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
)

// MemoryStore is a Store test double that records every write in order,
// mirroring the teacher's in-memory repositories used by its unit tests.
type MemoryStore struct {
	mu     sync.Mutex
	Writes []flowunit.FlowUnit
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Write implements Store.
func (m *MemoryStore) Write(ctx context.Context, fu flowunit.FlowUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes = append(m.Writes, fu)
	return nil
}

// Len returns the number of writes recorded so far.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Writes)
}
