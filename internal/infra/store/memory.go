package store

import (
	"context"
	"sync"

	"github.com/osa030/tubequeue/internal/domain/queue"
)

// Memory is an in-memory Store. Records are kept encoded so no caller ever
// shares a slice with the stored copy.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory creates a new Memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string][]byte),
	}
}

// Load returns the state for key, or the default state.
func (m *Memory) Load(_ context.Context, key string) (queue.State, error) {
	if key == "" {
		return queue.State{}, ErrEmptyKey
	}

	m.mu.RLock()
	data, ok := m.records[key]
	m.mu.RUnlock()

	if !ok {
		return queue.Default(), nil
	}
	return decodeState(key, data), nil
}

// Save replaces the state for key.
func (m *Memory) Save(_ context.Context, key string, s queue.State) error {
	if key == "" {
		return ErrEmptyKey
	}

	data, err := encodeState(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = data
	return nil
}

// Count returns the number of stored sessions.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)
