package correct

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a now func that advances by step on every call after the
// first (the constructor consumes one tick for the start time).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	first := true
	return func() time.Time {
		if first {
			first = false
			return t
		}
		t = t.Add(step)
		return t
	}
}

// recordSink collects published events for inspection.
type recordSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (s *recordSink) Publish(_ context.Context, ev ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) all() []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProgressEvent, len(s.events))
	copy(out, s.events)
	return out
}

// TestTracker_PercentRounding checks two-decimal rounding on uneven totals.
func TestTracker_PercentRounding(t *testing.T) {
	t.Parallel()

	trk := newTracker("t1", 3, fakeClock(time.Unix(0, 0), time.Second))
	sink := &recordSink{}

	trk.complete(context.Background(), sink)
	trk.complete(context.Background(), sink)
	trk.complete(context.Background(), sink)

	events := sink.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Percent != 33.33 {
		t.Errorf("expected 33.33, got %v", events[0].Percent)
	}
	if events[1].Percent != 66.67 {
		t.Errorf("expected 66.67, got %v", events[1].Percent)
	}
	if events[2].Percent != 100 {
		t.Errorf("expected 100, got %v", events[2].Percent)
	}
}

// TestTracker_RemainingEstimate checks the average-extrapolation estimate.
func TestTracker_RemainingEstimate(t *testing.T) {
	t.Parallel()

	// One segment per second of fake time, four segments.
	trk := newTracker("t1", 4, fakeClock(time.Unix(0, 0), time.Second))
	sink := &recordSink{}

	trk.complete(context.Background(), sink)
	events := sink.all()
	// After 1 of 4 in 1s: avg 1s, 3 left → 3s remaining.
	if events[0].Elapsed != time.Second {
		t.Errorf("expected 1s elapsed, got %v", events[0].Elapsed)
	}
	if events[0].Remaining != 3*time.Second {
		t.Errorf("expected 3s remaining, got %v", events[0].Remaining)
	}
}

// TestTracker_FinalEvent checks the terminal snapshot: 100%, nothing remaining.
func TestTracker_FinalEvent(t *testing.T) {
	t.Parallel()

	trk := newTracker("t1", 2, fakeClock(time.Unix(0, 0), time.Second))
	sink := &recordSink{}

	trk.complete(context.Background(), sink)
	trk.complete(context.Background(), sink)

	final := sink.all()[1]
	if final.Percent != 100 {
		t.Errorf("expected 100%%, got %v", final.Percent)
	}
	if final.Remaining != 0 {
		t.Errorf("expected zero remaining, got %v", final.Remaining)
	}
	if final.Completed != 2 || final.Total != 2 {
		t.Errorf("unexpected counts: %d/%d", final.Completed, final.Total)
	}
}

// TestTracker_MonotonicUnderConcurrency checks ordered delivery from many
// goroutines.
func TestTracker_MonotonicUnderConcurrency(t *testing.T) {
	t.Parallel()

	const total = 50
	trk := newTracker("t1", total, nil)
	sink := &recordSink{}

	var wg sync.WaitGroup
	for range total {
		wg.Go(func() {
			trk.complete(context.Background(), sink)
		})
	}
	wg.Wait()

	events := sink.all()
	if len(events) != total {
		t.Fatalf("expected %d events, got %d", total, len(events))
	}
	for i, ev := range events {
		if ev.Completed != i+1 {
			t.Fatalf("event %d: expected completed %d, got %d", i, i+1, ev.Completed)
		}
		if i > 0 && ev.Percent < events[i-1].Percent {
			t.Fatalf("percent regressed at event %d: %v < %v", i, ev.Percent, events[i-1].Percent)
		}
	}
}
