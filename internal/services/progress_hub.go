package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ProgressMessage is a message pushed to a user's progress stream
type ProgressMessage struct {
	Type      string      `json:"type"`
	EventID   string      `json:"event_id,omitempty"`
	State     string      `json:"state,omitempty"`
	Filename  string      `json:"filename,omitempty"`
	Completed int         `json:"completed,omitempty"`
	Total     int         `json:"total,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Progress message types
const (
	MsgUploadProgress = "upload_progress"
	MsgMatchState     = "match_state"
	MsgMatchDone      = "match_done"
	MsgError          = "error"
)

// ProgressHub manages per-user WebSocket connections used to stream
// upload and match progress. One connection per user; a new registration
// replaces the old one.
type ProgressHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewProgressHub creates a new progress hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register registers a WebSocket connection for a user
func (h *ProgressHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.Close()
	}
	h.connections[userID] = conn

	log.Info().Str("user_id", userID).Msg("Progress stream registered")
}

// Unregister removes a user's WebSocket connection
func (h *ProgressHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.connections[userID]; ok {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("Progress stream unregistered")
	}
}

// IsOnline reports whether a user has an open progress stream
func (h *ProgressHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}

// SendToUser pushes a message to a user's progress stream. Users without
// an open stream are skipped silently; progress is best-effort.
func (h *ProgressHub) SendToUser(userID string, message ProgressMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.connections[userID]
	if !ok {
		return nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		delete(h.connections, userID)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
