package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Etcd stores each record as a JSON value under prefix+userID
type Etcd struct {
	kv     clientv3.KV
	prefix string
	closer io.Closer
}

// NewEtcd uses an existing KV. Close leaves kv open.
func NewEtcd(kv clientv3.KV, prefix string) *Etcd {
	return &Etcd{kv: kv, prefix: prefix}
}

// DialEtcd connects to endpoints. Close closes the client.
func DialEtcd(endpoints []string, dialTimeout time.Duration, prefix string) (*Etcd, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to etcd %v: %w", endpoints, err)
	}
	return &Etcd{kv: cli, prefix: prefix, closer: cli}, nil
}

// Get returns the record for userID
func (e *Etcd) Get(ctx context.Context, userID int64) (Record, error) {
	resp, err := e.kv.Get(ctx, recordKey(e.prefix, userID))
	if err != nil {
		return Record{}, fmt.Errorf("getting user %d: %w", userID, err)
	}
	if len(resp.Kvs) == 0 {
		return Record{}, ErrNotFound
	}
	return decodeRecord(resp.Kvs[0].Value)
}

// PutIfAbsent writes in a transaction guarded by the key's create revision,
// which is zero only while the key does not exist. A lost race reads the
// winner's value in the same transaction.
func (e *Etcd) PutIfAbsent(ctx context.Context, rec Record) (Record, bool, error) {
	key := recordKey(e.prefix, rec.UserID)
	data, err := sonic.Marshal(rec)
	if err != nil {
		return Record{}, false, fmt.Errorf("encoding user %d: %w", rec.UserID, err)
	}

	resp, err := e.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(data))).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil {
		return Record{}, false, fmt.Errorf("creating user %d: %w", rec.UserID, err)
	}
	if resp.Succeeded {
		return rec, true, nil
	}

	if len(resp.Responses) == 0 {
		return Record{}, false, fmt.Errorf("creating user %d: empty transaction response", rec.UserID)
	}
	kvs := resp.Responses[0].GetResponseRange().GetKvs()
	if len(kvs) == 0 {
		return Record{}, false, fmt.Errorf("creating user %d: existing record vanished", rec.UserID)
	}
	existing, err := decodeRecord(kvs[0].Value)
	if err != nil {
		return Record{}, false, err
	}
	return existing, false, nil
}

// Ping issues a count-only read under the prefix
func (e *Etcd) Ping(ctx context.Context) error {
	_, err := e.kv.Get(ctx, e.prefix, clientv3.WithPrefix(), clientv3.WithCountOnly())
	return err
}

// Close closes the client when Etcd dialed it
func (e *Etcd) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}
