package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cached fronts a Backend with an in-process cache. Only existing records
// are cached: a record never changes once written, while a miss can turn
// into a hit at any time.
type Cached struct {
	backend Backend
	cache   *ristretto.Cache
}

// NewCached caches up to maxRecords records in front of backend
func NewCached(backend Backend, maxRecords int64) (*Cached, error) {
	if maxRecords <= 0 {
		maxRecords = 1
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxRecords * 10,
		MaxCost:     maxRecords,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating record cache: %w", err)
	}
	return &Cached{backend: backend, cache: cache}, nil
}

// Get serves from cache, falling back to the backend
func (c *Cached) Get(ctx context.Context, userID int64) (Record, error) {
	if v, ok := c.cache.Get(userID); ok {
		return v.(Record), nil
	}

	rec, err := c.backend.Get(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	c.cache.Set(userID, rec, 1)
	return rec, nil
}

// PutIfAbsent always goes to the backend; a cached record only proves the
// id exists, and the backend decides who created it.
func (c *Cached) PutIfAbsent(ctx context.Context, rec Record) (Record, bool, error) {
	stored, created, err := c.backend.PutIfAbsent(ctx, rec)
	if err != nil {
		return Record{}, false, err
	}
	c.cache.Set(stored.UserID, stored, 1)
	return stored, created, nil
}

// Ping checks the backend
func (c *Cached) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close releases the cache and closes the backend
func (c *Cached) Close() error {
	c.cache.Close()
	return c.backend.Close()
}
