package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// uploadPrefix marks spool files created by the upload handler. The janitor
// only ever touches files carrying it, so a shared temp directory is safe.
const uploadPrefix = "redink-upload-"

// defaultRetention is how long an orphaned spool file may linger before the
// janitor removes it. Files younger than this are assumed to belong to a run
// still in flight.
const defaultRetention = time.Hour

// Janitor periodically removes leftover upload spool files. Runs normally
// clean up after themselves; the janitor catches files orphaned by crashes.
type Janitor struct {
	dir       string
	interval  time.Duration
	retention time.Duration
	log       *slog.Logger
}

// NewJanitor creates a janitor for dir. interval must be positive; a zero or
// negative retention falls back to the default.
func NewJanitor(dir string, interval, retention time.Duration, log *slog.Logger) *Janitor {
	if retention <= 0 {
		retention = defaultRetention
	}
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		dir:       dir,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Run sweeps on every interval tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.log.Info("removed orphaned upload files", "dir", j.dir, "count", n)
			}
		}
	}
}

// Sweep removes spool files older than the retention window and returns how
// many were removed.
func (j *Janitor) Sweep() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		j.log.Warn("janitor sweep failed", "dir", j.dir, "err", err)
		return 0
	}

	cutoff := time.Now().Add(-j.retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), uploadPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if err := os.Remove(path); err != nil {
			j.log.Warn("janitor removal failed", "path", path, "err", err)
			continue
		}
		removed++
	}
	return removed
}
