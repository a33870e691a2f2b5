// Package task defines the correction task record and the Store interface
// used to persist it. A task is created when a document is uploaded, updated
// as the correction run progresses, and finalised exactly once with either a
// result or an error.
package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/redink-dev/redink/internal/correct"
)

// ErrNotFound is returned by Store lookups for unknown task IDs.
var ErrNotFound = errors.New("task: not found")

// Status is the lifecycle state of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Error kinds stored on failed tasks, mirroring the correction pipeline's
// error taxonomy.
const (
	KindUnsupportedFormat = "unsupported_format"
	KindNoSegments        = "no_segments"
	KindAllFailed         = "all_segments_failed"
	KindInternal          = "internal"
)

// Task is one document correction run.
type Task struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   Status `json:"status"`

	// Result holds the merged correction list once the task completes.
	Result []correct.Item `json:"result,omitempty"`

	// ErrorKind and ErrorMsg describe the failure once the task fails.
	ErrorKind string `json:"error_kind,omitempty"`
	ErrorMsg  string `json:"error,omitempty"`

	// Progress snapshot, updated while the task is running.
	Percent          float64 `json:"percent"`
	Completed        int     `json:"completed"`
	Total            int     `json:"total"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	RemainingSeconds float64 `json:"remaining_seconds"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// New returns a fresh running task for the given upload filename.
func New(filename string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists tasks. Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new task record.
	Create(ctx context.Context, t *Task) error

	// Get returns the task with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Task, error)

	// List returns all tasks, newest first.
	List(ctx context.Context) ([]*Task, error)

	// UpdateProgress stores a progress snapshot for a running task.
	UpdateProgress(ctx context.Context, id string, ev correct.ProgressEvent) error

	// Complete finalises a task with its merged correction list.
	Complete(ctx context.Context, id string, result []correct.Item) error

	// Fail finalises a task with an error kind and message.
	Fail(ctx context.Context, id string, kind, msg string) error
}
