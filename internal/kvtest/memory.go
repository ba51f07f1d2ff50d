// Package kvtest provides an in-memory types.KeyValue for tests, with a
// switch to make writes fail the way a full local store does.
package kvtest

import (
	"fmt"
	"sync"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

var _ types.KeyValue = (*Memory)(nil)

// Memory is a map-backed KeyValue.
type Memory struct {
	mu         sync.Mutex
	data       map[string][]byte
	failWrites bool
	writes     int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// FailWrites makes every subsequent Set return ErrQuotaExceeded while on.
func (m *Memory) FailWrites(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = on
}

// Writes returns how many Set calls succeeded.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Get implements types.KeyValue.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, types.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements types.KeyValue.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return fmt.Errorf("writing %s: %w", key, types.ErrQuotaExceeded)
	}
	m.data[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

// Delete implements types.KeyValue.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
