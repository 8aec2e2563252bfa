package storage

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned by Get when no record exists for the id
	ErrNotFound = errors.New("record not found")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("backend is closed")
)

// Record is one persisted user. Records are never updated once written.
type Record struct {
	UserID       int64     `json:"user_id"`
	MobileNumber string    `json:"mobile_number"`
	CreatedAt    time.Time `json:"created_at"`
}

// Backend persists user records. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Get returns the record for userID or ErrNotFound.
	Get(ctx context.Context, userID int64) (Record, error)
	// PutIfAbsent stores rec unless a record for rec.UserID exists. It
	// returns the stored record and whether this call created it. Of any
	// number of concurrent calls for one id, exactly one reports created.
	PutIfAbsent(ctx context.Context, rec Record) (stored Record, created bool, err error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

func recordKey(prefix string, userID int64) string {
	return prefix + strconv.FormatInt(userID, 10)
}
