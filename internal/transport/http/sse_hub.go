package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Client represents a connected SSE client.
type Client struct {
	userID string
	send   chan []byte
}

// Hub manages all active SSE client connections.
// Single-instance model: all broadcast is in-process.
type Hub struct {
	mu      sync.RWMutex
	clients map[string][]*Client // userID -> clients
}

// NewHub creates a new SSE Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string][]*Client),
	}
}

// Register adds a new SSE client.
func (h *Hub) Register(userID string, send chan []byte) *Client {
	c := &Client{userID: userID, send: send}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[userID] = append(h.clients[userID], c)

	log.Debug().Str("user", userID).Msg("SSE client connected")
	return c
}

// Unregister removes an SSE client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[c.userID]
	updated := make([]*Client, 0, len(clients))
	for _, existing := range clients {
		if existing != c {
			updated = append(updated, existing)
		}
	}

	if len(updated) == 0 {
		delete(h.clients, c.userID)
	} else {
		h.clients[c.userID] = updated
	}

	log.Debug().Str("user", c.userID).Msg("SSE client disconnected")
}

// Broadcast sends a payload to all connected SSE clients for a user and reports
// whether any of them accepted it. This satisfies application.InAppNotifier.
func (h *Hub) Broadcast(userID string, payload json.RawMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.clients[userID]
	if len(clients) == 0 {
		return false
	}

	msg := buildSSEMessage(payload)

	delivered := false
	for _, c := range clients {
		select {
		case c.send <- msg:
			delivered = true
		default:
			// Client is slow/disconnected, skip
			log.Warn().Str("user", userID).Msg("SSE client send buffer full, skipping")
		}
	}
	return delivered
}

// ConnectedCount returns the total number of connected SSE clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// buildSSEMessage formats a payload as an SSE data frame.
func buildSSEMessage(payload json.RawMessage) []byte {
	return []byte("event: notification\ndata: " + string(payload) + "\n\n")
}
