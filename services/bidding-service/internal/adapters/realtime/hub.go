package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// sendBuffer is how many frames a slow client may queue before it is dropped
const sendBuffer = 32

// Client is one WebSocket session of a user
type Client struct {
	UserID uuid.UUID
	Send   chan []byte
}

// Hub tracks the open sessions of each user on this process
type Hub struct {
	clients map[uuid.UUID]map[*Client]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a new session for the user
func (h *Hub) Register(userID uuid.UUID) *Client {
	c := &Client{UserID: userID, Send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	sessions, ok := h.clients[userID]
	if !ok {
		sessions = make(map[*Client]struct{})
		h.clients[userID] = sessions
	}
	sessions[c] = struct{}{}
	h.logger.Info("WebSocket client registered", "user_id", userID, "sessions", len(sessions))
	return c
}

// Unregister removes the session and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove expects h.mu to be held
func (h *Hub) remove(c *Client) {
	sessions, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := sessions[c]; !ok {
		return
	}
	delete(sessions, c)
	close(c.Send)
	if len(sessions) == 0 {
		delete(h.clients, c.UserID)
	}
	h.logger.Info("WebSocket client unregistered", "user_id", c.UserID)
}

// Deliver queues a frame on every session of the user and returns how many
// received it. Sessions whose buffer is full are dropped.
func (h *Hub) Deliver(userID uuid.UUID, frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.clients[userID] {
		select {
		case c.Send <- frame:
			delivered++
		default:
			h.logger.Warn("WebSocket client too slow, dropping", "user_id", userID)
			h.remove(c)
		}
	}
	return delivered
}

// Publish delivers the event to sessions on this process only
func (h *Hub) Publish(_ context.Context, userID uuid.UUID, event bids.PushEvent) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal push event: %w", err)
	}
	h.Deliver(userID, frame)
	return nil
}

// Connected returns the number of open sessions
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sessions := range h.clients {
		n += len(sessions)
	}
	return n
}
