// Package hub fans export lifecycle events out to connected dashboards.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Event types broadcast to dashboards.
const (
	EventJobStart    = "job_start"
	EventJobComplete = "job_complete"
	EventJobFailed   = "job_failed"
)

type ExportEvent struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id,omitempty"`
	Rows   int    `json:"rows,omitempty"`
	Key    string `json:"key,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	slog.Info("Dashboard connected", "total_connections", len(h.clients))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		slog.Info("Dashboard disconnected", "total_connections", len(h.clients))
	}
}

func (h *Hub) Broadcast(event ExportEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, _ := json.Marshal(event)
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Error("Dashboard broadcast failed", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
