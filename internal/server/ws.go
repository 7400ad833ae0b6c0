package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans generation events out to the browsers watching each job.
// Connections register under a job ID and receive every event broadcast
// for that ID until they disconnect.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs: make(map[string]map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The UI is served from the same origin; the API is also
			// meant to be reachable from file:// during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve upgrades the request and keeps the connection subscribed to
// jobID until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, jobID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		return
	}

	h.add(jobID, conn)
	defer h.remove(jobID, conn)

	// Drain the read side so pings and close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends evt to every connection subscribed to jobID.
// Connections that fail to accept the write are dropped.
func (h *Hub) Broadcast(jobID string, evt Event) {
	evt.JobID = jobID

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[jobID]))
	for conn := range h.subs[jobID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(evt); err != nil {
			h.logger.Debug("dropping websocket subscriber",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
			h.remove(jobID, conn)
		}
	}
}

func (h *Hub) add(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[jobID][conn] = struct{}{}
}

func (h *Hub) remove(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[jobID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.subs, jobID)
		}
	}
	conn.Close()
}

// SubscriberCount reports how many connections are watching jobID.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}
