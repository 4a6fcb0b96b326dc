package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a live-update notification pushed to every open dashboard.
// Key carries the date key for appointment changes.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	Key    string         `json:"key,omitempty"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub tracks connected dashboards and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	dropped int
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", "clients", n)
}

// Broadcast queues msg for every client and returns how many accepted it.
// A client whose buffer is full misses the message.
func (h *Hub) Broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- data:
			delivered++
		default:
			h.dropped++
		}
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped is the number of messages discarded for slow clients.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
