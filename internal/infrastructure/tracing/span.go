package tracing

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Status is the outcome recorded on a span
type Status struct {
	Code        codes.Code
	Description string
}

// Exception is the error detail attached by RecordError
type Exception struct {
	Type    string
	Message string
}

// Event is a timestamped annotation on a span
type Event struct {
	Name       string
	Time       time.Time
	Attributes []attribute.KeyValue
}

// Span represents a single operation in a trace. It is mutated only by the
// operation that started it and becomes immutable once ended.
type Span struct {
	tracer *Tracer
	name   string
	kind   oteltrace.SpanKind
	sc     SpanContext
	parent SpanContext
	start  time.Time

	mu        sync.Mutex
	end       time.Time
	ended     bool
	attrs     map[attribute.Key]attribute.Value
	status    Status
	exception *Exception
	events    []Event
}

// SpanData is the read-only snapshot handed to exporters
type SpanData struct {
	Name       string
	Service    string
	Kind       oteltrace.SpanKind
	Context    SpanContext
	Parent     SpanContext
	StartTime  time.Time
	EndTime    time.Time
	Attributes []attribute.KeyValue
	Status     Status
	Exception  *Exception
	Events     []Event
}

// Duration returns the span's wall time
func (d SpanData) Duration() time.Duration {
	return d.EndTime.Sub(d.StartTime)
}

// HasParent reports whether the span is a child
func (d SpanData) HasParent() bool {
	return d.Parent.SpanID.IsValid()
}

// Name returns the span name
func (s *Span) Name() string {
	return s.name
}

// SpanContext returns the span's identity
func (s *Span) SpanContext() SpanContext {
	return s.sc
}

// Parent returns the parent's identity; zero for a root span
func (s *Span) Parent() SpanContext {
	return s.parent
}

// IsEnded reports whether End has been called
func (s *Span) IsEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// SetAttributes adds or overwrites attributes. Ignored once the span ended.
func (s *Span) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		s.warn("attribute set on ended span")
		return
	}
	for _, a := range kv {
		if !a.Valid() {
			continue
		}
		s.attrs[a.Key] = a.Value
	}
}

// SetStatus sets the span status; the last call wins
func (s *Span) SetStatus(code codes.Code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		s.warn("status set on ended span")
		return
	}
	if code != codes.Error {
		description = ""
	}
	s.status = Status{Code: code, Description: description}
}

// RecordError attaches err to the span as an exception event. It does not
// change the status.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		s.warn("error recorded on ended span")
		return
	}
	exc := &Exception{Type: fmt.Sprintf("%T", err), Message: err.Error()}
	s.exception = exc
	s.events = append(s.events, Event{
		Name: "exception",
		Time: s.tracer.now(),
		Attributes: []attribute.KeyValue{
			attribute.String("exception.type", exc.Type),
			attribute.String("exception.message", exc.Message),
		},
	})
}

// AddEvent records a named annotation
func (s *Span) AddEvent(name string, kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		s.warn("event added to ended span")
		return
	}
	s.events = append(s.events, Event{Name: name, Time: s.tracer.now(), Attributes: kv})
}

// End closes the span and hands it to the exporter. Ending a span twice is a
// caller bug; the second call is logged and ignored.
func (s *Span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		s.warn("span ended twice")
		return
	}
	s.ended = true
	s.end = s.tracer.now()
	if s.end.Before(s.start) {
		s.end = s.start
	}
	data := s.snapshot()
	s.mu.Unlock()

	s.tracer.Submit(data)
}

// snapshot copies the span state; callers hold s.mu
func (s *Span) snapshot() SpanData {
	attrs := make([]attribute.KeyValue, 0, len(s.attrs))
	for k, v := range s.attrs {
		attrs = append(attrs, attribute.KeyValue{Key: k, Value: v})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })

	events := make([]Event, len(s.events))
	copy(events, s.events)

	return SpanData{
		Name:       s.name,
		Service:    s.tracer.service,
		Kind:       s.kind,
		Context:    s.sc,
		Parent:     s.parent,
		StartTime:  s.start,
		EndTime:    s.end,
		Attributes: attrs,
		Status:     s.status,
		Exception:  s.exception,
		Events:     events,
	}
}

func (s *Span) warn(msg string) {
	s.tracer.logger.Warn(msg,
		zap.String("span", s.name),
		zap.String("trace_id", s.sc.TraceID.String()),
		zap.String("span_id", s.sc.SpanID.String()),
	)
}
