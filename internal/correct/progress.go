package correct

import (
	"context"
	"math"
	"sync"
	"time"
)

// ProgressEvent is a snapshot of a correction run emitted after each segment
// completes, successfully or not.
type ProgressEvent struct {
	// TaskID identifies the run this event belongs to.
	TaskID string `json:"task_id"`

	// Completed is the number of segments that have finished so far.
	Completed int `json:"completed"`

	// Total is the number of segments in the run.
	Total int `json:"total"`

	// Percent is 100*Completed/Total rounded to two decimals.
	Percent float64 `json:"percent"`

	// Elapsed is the wall-clock time since the run started.
	Elapsed time.Duration `json:"elapsed"`

	// Remaining estimates the time left, extrapolated from the average
	// per-segment duration so far. Zero on the final event.
	Remaining time.Duration `json:"remaining"`
}

// ProgressSink receives progress events from a correction run. Calls for the
// same run are serialised and arrive in completion order, so Publish must not
// block for long or it will stall the worker pool.
type ProgressSink interface {
	Publish(ctx context.Context, ev ProgressEvent)
}

// NopSink discards all progress events.
type NopSink struct{}

// Publish implements ProgressSink.
func (NopSink) Publish(context.Context, ProgressEvent) {}

// tracker serialises completion accounting for a single run. Completed only
// ever increases; every advance produces exactly one event.
type tracker struct {
	mu        sync.Mutex
	taskID    string
	total     int
	completed int
	start     time.Time
	now       func() time.Time
}

// newTracker starts accounting for a run of total segments. now may be nil,
// in which case time.Now is used; tests inject a fake clock.
func newTracker(taskID string, total int, now func() time.Time) *tracker {
	if now == nil {
		now = time.Now
	}
	return &tracker{
		taskID: taskID,
		total:  total,
		start:  now(),
		now:    now,
	}
}

// complete records one completed segment and publishes the resulting
// snapshot to sink. Holding the lock across Publish keeps events strictly
// ordered: Completed increases by one per event and Percent never decreases.
func (t *tracker) complete(ctx context.Context, sink ProgressSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sink.Publish(ctx, t.advanceLocked())
}

// advanceLocked computes the next snapshot. Callers must hold t.mu.
func (t *tracker) advanceLocked() ProgressEvent {
	t.completed++
	elapsed := t.now().Sub(t.start)

	ev := ProgressEvent{
		TaskID:    t.taskID,
		Completed: t.completed,
		Total:     t.total,
		Percent:   round2(100 * float64(t.completed) / float64(t.total)),
		Elapsed:   elapsed,
	}

	if remaining := t.total - t.completed; remaining > 0 {
		avg := elapsed / time.Duration(t.completed)
		ev.Remaining = avg * time.Duration(remaining)
	}

	return ev
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
