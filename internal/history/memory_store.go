package history

import (
	"fmt"
	"sync"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// MemoryStore keeps history in process memory. Useful for tests and dry
// experiments; nothing survives a restart.
type MemoryStore struct {
	mu   sync.Mutex
	hist *History
	err  error
}

// NewMemoryStore returns an in-memory store seeded with records. Seed
// records that do not form a valid history make every Load and Append fail
// with ErrCorruptState.
func NewMemoryStore(records ...domain.PostedRecord) *MemoryStore {
	hist, err := New(records, nil)
	if err != nil {
		return &MemoryStore{hist: Empty(), err: errors.Mark(fmt.Errorf("seed memory history: %w", err), errors.ErrCorruptState)}
	}
	return &MemoryStore{hist: hist}
}

func (m *MemoryStore) Load() (*History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.hist, nil
}

func (m *MemoryStore) Append(rec domain.PostedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	next, err := m.hist.with(rec)
	if err != nil {
		return err
	}
	m.hist = next
	return nil
}

func (m *MemoryStore) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hist.Contains(key)
}

func (m *MemoryStore) Close() error { return nil }
