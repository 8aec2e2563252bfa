package id

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestTraceIDUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.TraceID()
	id2 := gen.TraceID()

	if id1 == id2 {
		t.Error("Generated trace IDs should be unique")
	}
	if id1 == ([16]byte{}) {
		t.Error("Trace ID should never be zero")
	}
}

func TestSpanIDNeverZero(t *testing.T) {
	// First eight bytes are zero, the generator must keep reading.
	entropy := bytes.NewReader(append(make([]byte, 8), 1, 2, 3, 4, 5, 6, 7, 8))
	gen := NewGeneratorWithEntropy(entropy)

	sid := gen.SpanID()

	if sid != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("Expected the first non-zero block, got %x", sid)
	}
}

func TestTimestamp(t *testing.T) {
	gen := NewGenerator()

	before := time.Now()
	tid := gen.TraceID()
	after := time.Now()

	tsMs := Timestamp(tid).UnixMilli()
	if tsMs < before.UnixMilli() || tsMs > after.UnixMilli() {
		t.Errorf("Timestamp should be between %d and %d ms, got %d ms",
			before.UnixMilli(), after.UnixMilli(), tsMs)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan [8]byte, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.SpanID()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[[8]byte]bool)
	for sid := range idChan {
		if seen[sid] {
			t.Errorf("Duplicate span ID found in concurrent generation: %x", sid)
		}
		seen[sid] = true
	}

	if len(seen) != goroutines*idsPerGoroutine {
		t.Errorf("Expected %d unique IDs, got %d", goroutines*idsPerGoroutine, len(seen))
	}
}

func TestDefaultGenerator(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same instance")
	}
}

func BenchmarkTraceID(b *testing.B) {
	gen := NewGenerator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.TraceID()
	}
}

func BenchmarkSpanID(b *testing.B) {
	gen := NewGenerator()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = gen.SpanID()
		}
	})
}
