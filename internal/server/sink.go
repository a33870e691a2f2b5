package server

import (
	"context"
	"log/slog"

	"github.com/redink-dev/redink/internal/correct"
	"github.com/redink-dev/redink/internal/task"
)

// progressSink persists each progress snapshot and fans it out to WebSocket
// clients. Publish calls arrive serialised from the correction run; both the
// store update and the hub broadcast are non-blocking enough to keep the
// worker pool moving.
type progressSink struct {
	store task.Store
	hub   *Hub
	log   *slog.Logger
}

var _ correct.ProgressSink = (*progressSink)(nil)

// Publish implements correct.ProgressSink.
func (s *progressSink) Publish(ctx context.Context, ev correct.ProgressEvent) {
	if err := s.store.UpdateProgress(ctx, ev.TaskID, ev); err != nil {
		s.log.Warn("progress update failed", "task", ev.TaskID, "err", err)
	}
	s.hub.BroadcastProgress(ev)
}
