package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/consul/api"
)

// ConsulKV is the part of the Consul KV API the backend uses
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
	CAS(p *api.KVPair, q *api.WriteOptions) (bool, *api.WriteMeta, error)
}

// maxCASAttempts bounds retries when a key is seen neither absent nor present
const maxCASAttempts = 3

// Consul stores each record as a JSON value under prefix+userID
type Consul struct {
	kv     ConsulKV
	prefix string
}

// NewConsul uses an existing KV client
func NewConsul(kv ConsulKV, prefix string) *Consul {
	return &Consul{kv: kv, prefix: prefix}
}

// DialConsul creates a client for the agent at address
func DialConsul(address, prefix string) (*Consul, error) {
	client, err := api.NewClient(&api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("creating consul client for %s: %w", address, err)
	}
	return NewConsul(client.KV(), prefix), nil
}

// Get returns the record for userID
func (c *Consul) Get(ctx context.Context, userID int64) (Record, error) {
	pair, _, err := c.kv.Get(recordKey(c.prefix, userID), (&api.QueryOptions{RequireConsistent: true}).WithContext(ctx))
	if err != nil {
		return Record{}, fmt.Errorf("getting user %d: %w", userID, err)
	}
	if pair == nil {
		return Record{}, ErrNotFound
	}
	return decodeRecord(pair.Value)
}

// PutIfAbsent uses check-and-set with index 0, which Consul only accepts
// while the key does not exist.
func (c *Consul) PutIfAbsent(ctx context.Context, rec Record) (Record, bool, error) {
	key := recordKey(c.prefix, rec.UserID)
	data, err := sonic.Marshal(rec)
	if err != nil {
		return Record{}, false, fmt.Errorf("encoding user %d: %w", rec.UserID, err)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		ok, _, err := c.kv.CAS(&api.KVPair{Key: key, Value: data, ModifyIndex: 0}, (&api.WriteOptions{}).WithContext(ctx))
		if err != nil {
			return Record{}, false, fmt.Errorf("creating user %d: %w", rec.UserID, err)
		}
		if ok {
			return rec, true, nil
		}

		existing, err := c.Get(ctx, rec.UserID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Record{}, false, err
		}
		return existing, false, nil
	}
	return Record{}, false, fmt.Errorf("creating user %d: key contended after %d attempts", rec.UserID, maxCASAttempts)
}

// Ping reads the prefix key
func (c *Consul) Ping(ctx context.Context) error {
	_, _, err := c.kv.Get(c.prefix, (&api.QueryOptions{}).WithContext(ctx))
	return err
}

// Close is a no-op; the HTTP client holds no resources that need releasing
func (c *Consul) Close() error {
	return nil
}
