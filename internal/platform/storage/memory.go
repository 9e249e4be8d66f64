package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs unit tests and standalone POS
// terminals running without a database.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes every Set return an error. Tests use it to exercise
	// the persistence-failure (compliance violation) paths.
	FailWrites bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrWriteFailed
	}
	m.data[key] = value
	return nil
}
