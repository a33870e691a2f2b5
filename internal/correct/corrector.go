// Package correct implements the document correction core: it fans a list of
// text segments out to a Large Language Model, parses each response into
// structured corrections, tracks aggregate progress, and merges the results
// into a single ordered correction list.
//
// The pipeline is deliberately tolerant of partial failure: a segment whose
// request fails or whose response cannot be parsed is logged and skipped, and
// the run still succeeds as long as at least one segment produced a usable
// outcome. Only an empty input ([ErrNoSegments]) or a run with zero usable
// outcomes ([ErrAllSegmentsFailed]) fails as a whole.
package correct

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/redink-dev/redink/internal/observe"
)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithWorkers caps the number of concurrent model requests.
// Default: runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *Corrector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSink sets the destination for progress events. Default: discard.
func WithSink(sink ProgressSink) Option {
	return func(c *Corrector) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger sets the logger used for per-segment diagnostics.
// Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Corrector) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics enables per-segment instrumentation. Default: none.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Corrector) {
		c.metrics = m
	}
}

// outcome is the terminal state of one segment's exchange. Exactly one of
// items/err is meaningful; each slot is written once by its owning worker.
type outcome struct {
	items []Item
	err   error
}

// Corrector runs correction passes over segment lists. It is stateless
// between runs and safe for concurrent use.
type Corrector struct {
	client  *Client
	sink    ProgressSink
	workers int
	log     *slog.Logger
	metrics *observe.Metrics
}

// New returns a [Corrector] that sends segments through the given [Client].
func New(client *Client, opts ...Option) *Corrector {
	c := &Corrector{
		client:  client,
		sink:    NopSink{},
		workers: runtime.GOMAXPROCS(0),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct sends every segment to the model through a bounded worker pool and
// returns the merged correction list in segment order. taskID is carried on
// progress events so sinks can route them.
//
// Per-segment failures are absorbed: the failed segment contributes nothing
// to the result and the run continues. A progress event is emitted for every
// segment regardless of its outcome; the final event always reports 100%.
//
// Cancelling ctx stops in-flight requests; already-dispatched segments then
// fail with a [*TransportError] like any other transport failure.
func (c *Corrector) Correct(ctx context.Context, taskID string, segments []string) ([]Item, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	c.log.LogAttrs(ctx, slog.LevelInfo, "correction run started",
		slog.String("task_id", taskID),
		slog.Int("segments", len(segments)),
		slog.Int("workers", c.workers),
	)

	outcomes := make([]outcome, len(segments))
	trk := newTracker(taskID, len(segments), nil)

	var g errgroup.Group
	g.SetLimit(c.workers)

	for i, seg := range segments {
		g.Go(func() error {
			start := time.Now()
			items, err := c.client.correctSegment(ctx, seg)
			outcomes[i] = outcome{items: items, err: err}

			c.recordSegment(ctx, time.Since(start), err)
			trk.complete(ctx, c.sink)
			return nil
		})
	}
	// Workers never return errors; Wait only synchronises the pool.
	_ = g.Wait()

	return c.merge(ctx, taskID, segments, outcomes)
}

// merge folds per-segment outcomes into one ordered correction list.
func (c *Corrector) merge(ctx context.Context, taskID string, segments []string, outcomes []outcome) ([]Item, error) {
	merged := make([]Item, 0, len(outcomes))
	succeeded := 0

	for i, oc := range outcomes {
		if oc.err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "segment skipped",
				slog.String("task_id", taskID),
				slog.Int("segment", i),
				slog.String("error", oc.err.Error()),
			)
			continue
		}
		succeeded++
		merged = append(merged, oc.items...)
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: 0 of %d segments usable", ErrAllSegmentsFailed, len(segments))
	}

	c.log.LogAttrs(ctx, slog.LevelInfo, "correction run finished",
		slog.String("task_id", taskID),
		slog.Int("segments", len(segments)),
		slog.Int("succeeded", succeeded),
		slog.Int("corrections", len(merged)),
	)

	return merged, nil
}

// recordSegment updates segment-level metrics when instrumentation is wired.
func (c *Corrector) recordSegment(ctx context.Context, d time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	c.metrics.SegmentDuration.Record(ctx, d.Seconds(), attrs)
	c.metrics.SegmentsProcessed.Add(ctx, 1, attrs)
}
