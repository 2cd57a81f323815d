package staleness

import (
	"sync"
	"time"
)

// MemoryRecords is an in-memory last-request store for entity types whose
// freshness need not survive a restart.
type MemoryRecords struct {
	mu      sync.RWMutex
	records map[int64]time.Time
}

func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{records: make(map[int64]time.Time)}
}

func (m *MemoryRecords) LastRequest(id int64) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.records[id]
	return at, ok, nil
}

func (m *MemoryRecords) UpdateLastRequest(id int64, at time.Time) error {
	m.mu.Lock()
	m.records[id] = at
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecords) DeleteLastRequest(id int64) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecords) DeleteAllLastRequests() error {
	m.mu.Lock()
	m.records = make(map[int64]time.Time)
	m.mu.Unlock()
	return nil
}
