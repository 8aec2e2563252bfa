package monitoring

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics (admin endpoints)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls    *prometheus.CounterVec
	GRPCDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	factory   promauto.Factory
	startTime time.Time
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		factory:   factory,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usertrace_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "usertrace_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		GRPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usertrace_grpc_calls_total",
				Help: "Total number of gRPC calls",
			},
			[]string{"side", "method", "code"},
		),
		GRPCDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "usertrace_grpc_duration_seconds",
				Help:    "gRPC call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"side", "method"},
		),

		StoreOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usertrace_store_operations_total",
				Help: "User store operations by outcome",
			},
			[]string{"operation", "result"},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "usertrace_store_duration_seconds",
				Help:    "User store operation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "usertrace_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// ObserveRPC records a finished gRPC call
func (m *Metrics) ObserveRPC(side, method, code string, duration time.Duration) {
	m.GRPCCalls.WithLabelValues(side, method, code).Inc()
	m.GRPCDuration.WithLabelValues(side, method).Observe(duration.Seconds())
}

// ObserveStore records a finished store operation
func (m *Metrics) ObserveStore(operation, result string, duration time.Duration) {
	m.StoreOperations.WithLabelValues(operation, result).Inc()
	m.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an admin HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackTracer exposes the span pipeline counters of tracer. Call once per
// tracer and registry.
func (m *Metrics) TrackTracer(tracer *tracing.Tracer) {
	stat := func(pick func(tracing.Stats) float64) func() float64 {
		return func() float64 { return pick(tracer.Stats()) }
	}

	m.factory.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "usertrace_spans_exported_total",
			Help: "Spans handed to the exporter successfully",
		},
		stat(func(s tracing.Stats) float64 { return float64(s.Exported) }),
	)
	m.factory.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "usertrace_spans_dropped_total",
			Help: "Spans dropped because the export queue was full or the tracer was stopped",
		},
		stat(func(s tracing.Stats) float64 { return float64(s.Dropped) }),
	)
	m.factory.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "usertrace_span_export_failures_total",
			Help: "Spans whose export failed",
		},
		stat(func(s tracing.Stats) float64 { return float64(s.Failed) }),
	)
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "usertrace_spans_queued",
			Help: "Finished spans waiting for export",
		},
		stat(func(s tracing.Stats) float64 { return float64(s.Queued) }),
	)
}

// CounterTotals gathers the counter family name from g and returns its values
// keyed by "label=value,..." in label order. A missing family yields an empty map.
func CounterTotals(g prometheus.Gatherer, name string) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				pairs = append(pairs, label.GetName()+"="+label.GetValue())
			}
			totals[strings.Join(pairs, ",")] += metric.GetCounter().GetValue()
		}
	}
	return totals, nil
}
