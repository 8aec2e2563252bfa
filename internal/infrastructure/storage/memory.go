package storage

import (
	"context"
	"sync"
)

// Memory keeps records in a map. Used for tests and single-process runs.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]Record
	closed  bool
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]Record)}
}

// Get returns the record for userID
func (m *Memory) Get(ctx context.Context, userID int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Record{}, ErrClosed
	}
	rec, ok := m.records[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// PutIfAbsent stores rec under the write lock so check and insert are one step
func (m *Memory) PutIfAbsent(ctx context.Context, rec Record) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Record{}, false, ErrClosed
	}
	if existing, ok := m.records[rec.UserID]; ok {
		return existing, false, nil
	}
	m.records[rec.UserID] = rec
	return rec, true, nil
}

// Len returns the number of stored records
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Ping always succeeds while open
func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close discards all records
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
