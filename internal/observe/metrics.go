// Package observe provides application-wide observability primitives for
// Redink: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Redink metrics.
const meterName = "github.com/redink-dev/redink"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// SegmentDuration tracks per-segment LLM correction latency. Use with
	// attribute: attribute.String("result", "ok"|"error")
	SegmentDuration metric.Float64Histogram

	// RunDuration tracks end-to-end correction run latency per document.
	RunDuration metric.Float64Histogram

	// LoadDuration tracks document loading and segmentation latency. Use with
	// attribute: attribute.String("format", ...)
	LoadDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsProcessed counts corrected segments. Use with attribute:
	//   attribute.String("result", "ok"|"error")
	SegmentsProcessed metric.Int64Counter

	// TasksFinished counts finished correction tasks. Use with attribute:
	//   attribute.String("status", "completed"|"failed")
	TasksFinished metric.Int64Counter

	// --- Gauges ---

	// ActiveTasks tracks the number of correction runs currently in flight.
	ActiveTasks metric.Int64UpDownCounter

	// WebsocketClients tracks the number of connected progress subscribers.
	WebsocketClients metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Segment
// corrections are dominated by LLM round-trips, so the buckets skew long.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SegmentDuration, err = m.Float64Histogram("redink.segment.duration",
		metric.WithDescription("Latency of a single segment correction round-trip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("redink.run.duration",
		metric.WithDescription("End-to-end correction run latency per document."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LoadDuration, err = m.Float64Histogram("redink.load.duration",
		metric.WithDescription("Document loading and segmentation latency by format."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsProcessed, err = m.Int64Counter("redink.segments.processed",
		metric.WithDescription("Total segments processed by result."),
	); err != nil {
		return nil, err
	}
	if met.TasksFinished, err = m.Int64Counter("redink.tasks.finished",
		metric.WithDescription("Total finished correction tasks by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTasks, err = m.Int64UpDownCounter("redink.active_tasks",
		metric.WithDescription("Number of correction runs currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.WebsocketClients, err = m.Int64UpDownCounter("redink.websocket_clients",
		metric.WithDescription("Number of connected progress subscribers."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("redink.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTaskFinished is a convenience method that records a finished task
// counter increment.
func (m *Metrics) RecordTaskFinished(ctx context.Context, status string) {
	m.TasksFinished.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordLoad is a convenience method that records document load latency for
// one format.
func (m *Metrics) RecordLoad(ctx context.Context, format string, seconds float64) {
	m.LoadDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("format", format)),
	)
}
