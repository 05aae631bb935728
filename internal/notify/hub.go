// Package notify pushes list mutations to connected websocket clients so an
// open frontend can refresh without polling.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	EventListAdded   = "list.added"
	EventListUpdated = "list.updated"
	EventListRemoved = "list.removed"
)

// ListEvent is the wire shape of one broadcast mutation.
type ListEvent struct {
	Type      string    `json:"type"`
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	MediaID   string    `json:"media_id,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Status    string    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastJSON sends v to every connected client; slow or broken clients
// are dropped rather than blocking the hub.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			delete(h.clients, ws)
			_ = ws.Close()
		}
	}
}
