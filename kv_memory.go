package session

import (
	"context"
	"errors"
	"sync"
)

var errWritesDisabled = errors.New("kv writes disabled")

// MemoryKV is a process-local KV backend. It is the zero-dependency default
// and doubles as the quota-failure stand-in for tests via FailWrites.
type MemoryKV struct {
	mu         sync.RWMutex
	data       map[string]string
	failWrites bool
}

// NewMemoryKV returns an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

// FailWrites toggles simulated write failures (quota exceeded, storage
// disabled). Reads keep working.
func (m *MemoryKV) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errWritesDisabled
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
