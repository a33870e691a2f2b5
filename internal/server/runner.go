package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/redink-dev/redink/internal/correct"
	"github.com/redink-dev/redink/internal/observe"
	"github.com/redink-dev/redink/internal/segment"
	"github.com/redink-dev/redink/internal/task"
)

// Runner executes correction tasks in the background. Each task goes through
// segmentation, the concurrent correction run, and exactly one terminal store
// update (Complete or Fail). The spooled upload file is removed when the run
// ends, whatever the outcome.
type Runner struct {
	store    task.Store
	hub      *Hub
	client   *correct.Client
	workers  int
	maxChars int
	metrics  *observe.Metrics
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RunnerConfig collects the Runner's dependencies and tuning.
type RunnerConfig struct {
	Store  task.Store
	Hub    *Hub
	Client *correct.Client

	// Workers caps concurrent segment corrections per task. 0 means the
	// corrector's default.
	Workers int

	// MaxChars is the advisory segment length budget. 0 means the
	// segmenter's default.
	MaxChars int

	// Metrics may be nil.
	Metrics *observe.Metrics

	// Logger may be nil, in which case slog.Default is used.
	Logger *slog.Logger
}

// NewRunner creates a Runner. Tasks run until they finish or Shutdown is
// called.
func NewRunner(cfg RunnerConfig) *Runner {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    cfg.Store,
		hub:      cfg.Hub,
		client:   cfg.Client,
		workers:  cfg.Workers,
		maxChars: cfg.MaxChars,
		metrics:  cfg.Metrics,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the correction run for t in a background goroutine. path is
// the spooled upload file; the Runner owns it from here on.
func (r *Runner) Start(t *task.Task, path string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(t, path)
	}()
}

// Shutdown cancels in-flight runs and waits for them to finish or for ctx to
// expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(t *task.Task, path string) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.Warn("upload file removal failed", "task", t.ID, "path", path, "err", err)
		}
	}()

	ctx, span := observe.StartSpan(r.ctx, "correction run",
		trace.WithAttributes(observe.Attr("task_id", t.ID)),
	)
	defer span.End()

	if r.metrics != nil {
		r.metrics.ActiveTasks.Add(ctx, 1)
		defer r.metrics.ActiveTasks.Add(context.Background(), -1)
	}

	start := time.Now()

	segments, err := r.loadSegments(ctx, path)
	if err != nil {
		r.fail(ctx, t, err)
		return
	}

	corrector := correct.New(r.client,
		correct.WithWorkers(r.workers),
		correct.WithSink(&progressSink{store: r.store, hub: r.hub, log: r.log}),
		correct.WithLogger(r.log),
		correct.WithMetrics(r.metrics),
	)

	items, err := corrector.Correct(ctx, t.ID, segments)
	if err != nil {
		r.fail(ctx, t, err)
		return
	}

	if err := r.store.Complete(ctx, t.ID, items); err != nil {
		r.log.Error("task completion not persisted", "task", t.ID, "err", err)
	}
	r.finish(ctx, t.ID, eventComplete, string(task.StatusCompleted))

	if r.metrics != nil {
		r.metrics.RunDuration.Record(ctx, time.Since(start).Seconds())
	}
	r.log.LogAttrs(ctx, slog.LevelInfo, "task completed",
		slog.String("task", t.ID),
		slog.String("filename", t.Filename),
		slog.Int("segments", len(segments)),
		slog.Int("corrections", len(items)),
		slog.Duration("took", time.Since(start)),
	)
}

// loadSegments reads and segments the document, recording load latency by
// format.
func (r *Runner) loadSegments(ctx context.Context, path string) ([]string, error) {
	loadStart := time.Now()
	segments, err := segment.Load(ctx, path, r.maxChars)
	if r.metrics != nil {
		format := strings.TrimPrefix(filepath.Ext(path), ".")
		r.metrics.RecordLoad(ctx, format, time.Since(loadStart).Seconds())
	}
	return segments, err
}

// fail finalises t with a classified error and notifies clients.
func (r *Runner) fail(ctx context.Context, t *task.Task, cause error) {
	kind := classifyError(cause)
	if err := r.store.Fail(ctx, t.ID, kind, cause.Error()); err != nil {
		r.log.Error("task failure not persisted", "task", t.ID, "err", err)
	}
	r.finish(ctx, t.ID, eventError, string(task.StatusFailed))

	r.log.LogAttrs(ctx, slog.LevelWarn, "task failed",
		slog.String("task", t.ID),
		slog.String("filename", t.Filename),
		slog.String("kind", kind),
		slog.String("err", cause.Error()),
	)
}

// finish broadcasts the terminal event with the stored task record and counts
// the outcome.
func (r *Runner) finish(ctx context.Context, taskID, eventType, status string) {
	if stored, err := r.store.Get(ctx, taskID); err == nil {
		r.hub.BroadcastTask(eventType, stored)
	}
	if r.metrics != nil {
		r.metrics.RecordTaskFinished(ctx, status)
	}
}

// classifyError maps pipeline errors onto the stored error kinds.
func classifyError(err error) string {
	switch {
	case errors.Is(err, segment.ErrUnsupportedFormat):
		return task.KindUnsupportedFormat
	case errors.Is(err, segment.ErrNoText), errors.Is(err, correct.ErrNoSegments):
		return task.KindNoSegments
	case errors.Is(err, correct.ErrAllSegmentsFailed):
		return task.KindAllFailed
	default:
		return task.KindInternal
	}
}
