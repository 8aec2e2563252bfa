// Package storage provides the persistence backends behind the user store.
//
// Every backend implements Backend and gives PutIfAbsent exactly-once
// creation semantics using the primitive native to it:
//   - Memory: a write lock around check and insert
//   - SQLite: INSERT ... ON CONFLICT(user_id) DO NOTHING on the primary key
//   - Etcd: a transaction guarded by CreateRevision(key) == 0
//   - Consul: check-and-set with ModifyIndex 0
//
// Cached adds a ristretto read cache in front of any backend.
package storage
