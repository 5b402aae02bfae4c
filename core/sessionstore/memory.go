package sessionstore

import (
	"context"
	"sync"
)

// Memory keeps records in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Load(_ context.Context, username string) (Record, error) {
	if username == "" {
		return Record{}, ErrInvalidUsername
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[username]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) Save(_ context.Context, username string, rec Record) error {
	if username == "" {
		return ErrInvalidUsername
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[username] = rec.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, username string) error {
	if username == "" {
		return ErrInvalidUsername
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, username)
	return nil
}
