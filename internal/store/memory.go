package store

import (
	"fmt"
	"sync"
)

// MemoryBackend is an in-memory Backend with an optional capacity limit.
// It is used by tests and by the session when disk storage is unavailable.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
	quota   int64
	used    int64
}

// NewMemoryBackend creates a backend holding at most quota bytes of keys and
// values. A quota <= 0 means unlimited.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{records: map[string][]byte{}, quota: quota}
}

// Get implements Backend.
func (m *MemoryBackend) Get(id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := int64(len(id) + len(data))
	var old int64
	if prev, ok := m.records[id]; ok {
		old = int64(len(id) + len(prev))
	}
	if m.quota > 0 && m.used-old+size > m.quota {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrQuotaExceeded, size, m.used, m.quota)
	}
	m.records[id] = append([]byte(nil), data...)
	m.used += size - old
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.records[id]; ok {
		m.used -= int64(len(id) + len(prev))
		delete(m.records, id)
	}
	return nil
}

// List implements Backend.
func (m *MemoryBackend) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Used returns the bytes currently stored.
func (m *MemoryBackend) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
