package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/redink-dev/redink/internal/segment"
	"github.com/redink-dev/redink/internal/task"
)

// uploadField is the multipart form field carrying the document.
const uploadField = "document"

// defaultMaxUpload bounds the accepted request body when no limit is
// configured.
const defaultMaxUpload = 32 << 20

// errorBody is the JSON error response shape.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// taskList groups tasks by lifecycle state for GET /tasks.
type taskList struct {
	Running   []*task.Task `json:"running"`
	Completed []*task.Task `json:"completed"`
	Failed    []*task.Task `json:"failed"`
}

// handleUpload accepts a multipart document upload, spools it to disk,
// creates a task, and starts the correction run in the background. Responds
// 202 with the new task record.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.maxUpload
	if maxBytes <= 0 {
		maxBytes = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "", fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "", fmt.Sprintf("multipart field %q is required", uploadField))
		return
	}
	defer file.Close()

	if !segment.Supported(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType, task.KindUnsupportedFormat,
			fmt.Sprintf("unsupported file format %q", filepath.Ext(header.Filename)))
		return
	}

	path, err := s.spool(file, header.Filename)
	if err != nil {
		s.log.Error("upload spool failed", "filename", header.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, task.KindInternal, "could not store upload")
		return
	}

	t := task.New(header.Filename)
	if err := s.store.Create(r.Context(), t); err != nil {
		_ = os.Remove(path)
		s.log.Error("task creation failed", "filename", header.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, task.KindInternal, "could not create task")
		return
	}

	s.runner.Start(t, path)

	s.log.LogAttrs(r.Context(), slog.LevelInfo, "task accepted",
		slog.String("task", t.ID),
		slog.String("filename", t.Filename),
	)
	writeJSON(w, http.StatusAccepted, t)
}

// spool copies the upload to a temp file in the configured directory,
// preserving the extension so the segmenter can pick a loader.
func (s *Server) spool(file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(s.uploadDir, uploadPrefix+"*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, file); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// handleListTasks returns all tasks grouped by status, each group newest
// first.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("task listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, task.KindInternal, "could not list tasks")
		return
	}

	out := taskList{
		Running:   []*task.Task{},
		Completed: []*task.Task{},
		Failed:    []*task.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusCompleted:
			out.Completed = append(out.Completed, t)
		case task.StatusFailed:
			out.Failed = append(out.Failed, t)
		default:
			out.Running = append(out.Running, t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetTask returns a single task by ID, including result or error once
// the run finished.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.store.Get(r.Context(), id)
	if errors.Is(err, task.ErrNotFound) {
		writeError(w, http.StatusNotFound, "", fmt.Sprintf("no task with id %q", id))
		return
	}
	if err != nil {
		s.log.Error("task lookup failed", "task", id, "err", err)
		writeError(w, http.StatusInternalServerError, task.KindInternal, "could not load task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError sends a JSON error body with an optional machine-readable kind.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}
