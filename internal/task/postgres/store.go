// Package postgres provides a PostgreSQL-backed task store for deployments
// that need task history to survive restarts. The schema is created on
// startup; there is no separate migration tooling.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redink-dev/redink/internal/correct"
	"github.com/redink-dev/redink/internal/task"
)

// Compile-time interface check.
var _ task.Store = (*Store)(nil)

// Store is a task.Store backed by a pgx connection pool.
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the PostgreSQL database at dsn, verifies the
// connection, and ensures the tasks table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("task store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("task store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("task store: ping: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("task store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// migrate creates the tasks table if it does not exist.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const q = `
		CREATE TABLE IF NOT EXISTS tasks (
			id                text PRIMARY KEY,
			filename          text NOT NULL,
			status            text NOT NULL,
			result            jsonb,
			error_kind        text NOT NULL DEFAULT '',
			error_msg         text NOT NULL DEFAULT '',
			percent           double precision NOT NULL DEFAULT 0,
			completed         integer NOT NULL DEFAULT 0,
			total             integer NOT NULL DEFAULT 0,
			elapsed_seconds   double precision NOT NULL DEFAULT 0,
			remaining_seconds double precision NOT NULL DEFAULT 0,
			created_at        timestamptz NOT NULL,
			updated_at        timestamptz NOT NULL,
			finished_at       timestamptz
		)`

	_, err := pool.Exec(ctx, q)
	return err
}

// Create implements task.Store.
func (s *Store) Create(ctx context.Context, t *task.Task) error {
	const q = `
		INSERT INTO tasks (id, filename, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q, t.ID, t.Filename, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("task store: create: %w", err)
	}
	return nil
}

const taskColumns = `id, filename, status, result, error_kind, error_msg,
	percent, completed, total, elapsed_seconds, remaining_seconds,
	created_at, updated_at, finished_at`

// Get implements task.Store.
func (s *Store) Get(ctx context.Context, id string) (*task.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("task store: get: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTask)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task store: get: %w", err)
	}
	return t, nil
}

// List implements task.Store.
func (s *Store) List(ctx context.Context) ([]*task.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("task store: list: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("task store: list: %w", err)
	}
	return tasks, nil
}

// UpdateProgress implements task.Store.
func (s *Store) UpdateProgress(ctx context.Context, id string, ev correct.ProgressEvent) error {
	const q = `
		UPDATE tasks
		SET    percent = $2, completed = $3, total = $4,
		       elapsed_seconds = $5, remaining_seconds = $6, updated_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, id,
		ev.Percent, ev.Completed, ev.Total,
		ev.Elapsed.Seconds(), ev.Remaining.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("task store: update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Complete implements task.Store.
func (s *Store) Complete(ctx context.Context, id string, result []correct.Item) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("task store: marshal result: %w", err)
	}

	const q = `
		UPDATE tasks
		SET    status = $2, result = $3, percent = 100, remaining_seconds = 0,
		       updated_at = now(), finished_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, id, string(task.StatusCompleted), data)
	if err != nil {
		return fmt.Errorf("task store: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Fail implements task.Store.
func (s *Store) Fail(ctx context.Context, id string, kind, msg string) error {
	const q = `
		UPDATE tasks
		SET    status = $2, error_kind = $3, error_msg = $4,
		       updated_at = now(), finished_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, id, string(task.StatusFailed), kind, msg)
	if err != nil {
		return fmt.Errorf("task store: fail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// scanTask scans one row into a Task.
func scanTask(row pgx.CollectableRow) (*task.Task, error) {
	var (
		t          task.Task
		status     string
		resultJSON []byte
		finishedAt *time.Time
	)
	if err := row.Scan(
		&t.ID,
		&t.Filename,
		&status,
		&resultJSON,
		&t.ErrorKind,
		&t.ErrorMsg,
		&t.Percent,
		&t.Completed,
		&t.Total,
		&t.ElapsedSeconds,
		&t.RemainingSeconds,
		&t.CreatedAt,
		&t.UpdatedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	t.Status = task.Status(status)
	t.FinishedAt = finishedAt
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &t.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &t, nil
}
