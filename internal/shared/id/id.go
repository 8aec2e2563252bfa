// Package id provides centralized identifier generation for tracing.
//
// Trace identifiers are ULIDs: 128 bits, never zero, and sortable by the
// millisecond they were created in, which keeps traces from one process
// roughly ordered in a collector. Span identifiers are 64 random bits.
//
// Design Principles:
//   - One generator per process, shared by every request goroutine
//   - Never returns an all-zero identifier (zero means "absent" on the wire)
//   - Entropy source is swappable for deterministic tests
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Generator
// ============================================================================

// Generator produces trace and span identifiers.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// TraceID returns a new 128-bit trace identifier.
func (g *Generator) TraceID() [16]byte {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// SpanID returns a new non-zero 64-bit span identifier.
func (g *Generator) SpanID() [8]byte {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	var sid [8]byte
	for sid == ([8]byte{}) {
		if _, err := io.ReadFull(g.entropy, sid[:]); err != nil {
			panic("id: entropy source failed: " + err.Error())
		}
	}
	return sid
}

// ============================================================================
// Inspection
// ============================================================================

// Timestamp extracts the creation time embedded in a trace identifier.
func Timestamp(traceID [16]byte) time.Time {
	return ulid.Time(ulid.ULID(traceID).Time())
}
