package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/redink-dev/redink/internal/correct"
	"github.com/redink-dev/redink/internal/observe"
	"github.com/redink-dev/redink/internal/task"
)

// Event types sent over the WebSocket feed.
const (
	eventProgress = "task_progress"
	eventComplete = "task_complete"
	eventError    = "task_error"
)

// wsEvent is the envelope for every message on the progress feed.
type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// progressPayload is the task_progress event body. Durations are flattened to
// seconds so clients don't have to deal with Go duration encoding.
type progressPayload struct {
	TaskID           string  `json:"task_id"`
	Completed        int     `json:"completed"`
	Total            int     `json:"total"`
	Percent          float64 `json:"percent"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// sendBuffer is the per-client outbound queue length. A client that falls
// this far behind starts losing events; progress is snapshot-style so a
// dropped event is recovered by the next one.
const sendBuffer = 32

type wsClient struct {
	send chan []byte
}

// Hub fans task events out to all connected WebSocket clients. Slow clients
// never block a correction run: events are dropped when a client's queue is
// full.
type Hub struct {
	store   task.Store
	log     *slog.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub creates a hub that snapshots running tasks from store when a client
// connects. metrics may be nil.
func NewHub(store task.Store, log *slog.Logger, metrics *observe.Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		store:   store,
		log:     log,
		metrics: metrics,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams task events until
// the client disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", "err", err)
		return
	}

	c := &wsClient{send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(c)

	if h.metrics != nil {
		h.metrics.WebsocketClients.Add(r.Context(), 1)
		defer h.metrics.WebsocketClients.Add(context.Background(), -1)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.sendSnapshot(ctx, c)

	// Writer: drain the client queue onto the connection.
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-c.send:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "server shutting down")
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			}
		}
	}()

	// Reader: the feed is one-way, but reading is required to notice the
	// client going away and to answer control frames.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// register adds c to the client set. Returns false if the hub is closed.
func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// sendSnapshot queues a task_progress event for every running task so a
// freshly connected client sees in-flight work immediately.
func (h *Hub) sendSnapshot(ctx context.Context, c *wsClient) {
	tasks, err := h.store.List(ctx)
	if err != nil {
		h.log.Warn("websocket snapshot failed", "err", err)
		return
	}
	for _, t := range tasks {
		if t.Status != task.StatusRunning {
			continue
		}
		msg, err := json.Marshal(wsEvent{Type: eventProgress, Data: progressPayload{
			TaskID:           t.ID,
			Completed:        t.Completed,
			Total:            t.Total,
			Percent:          t.Percent,
			ElapsedSeconds:   t.ElapsedSeconds,
			RemainingSeconds: t.RemainingSeconds,
		}})
		if err != nil {
			continue
		}
		select {
		case c.send <- msg:
		default:
			return
		}
	}
}

// BroadcastProgress publishes a task_progress event to all clients.
func (h *Hub) BroadcastProgress(ev correct.ProgressEvent) {
	h.broadcast(eventProgress, progressPayload{
		TaskID:           ev.TaskID,
		Completed:        ev.Completed,
		Total:            ev.Total,
		Percent:          ev.Percent,
		ElapsedSeconds:   ev.Elapsed.Seconds(),
		RemainingSeconds: ev.Remaining.Seconds(),
	})
}

// BroadcastTask publishes a terminal task event (task_complete or task_error)
// carrying the full task record.
func (h *Hub) BroadcastTask(eventType string, t *task.Task) {
	h.broadcast(eventType, t)
}

func (h *Hub) broadcast(eventType string, data any) {
	msg, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		h.log.Warn("websocket event marshal failed", "type", eventType, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client is too far behind; drop the event for it.
		}
	}
}

// Close disconnects all clients and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
