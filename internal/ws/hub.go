// Package ws pushes draw state to connected kiosk displays.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Message types sent to displays.
const (
	TypeDrawState = "draw_state"
	TypeKioskExit = "kiosk_exit"
)

// WSMessage is the envelope of every message pushed to a display.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans messages out to every connected display.
// Writes are serialized because a websocket.Conn allows one writer at a time.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub creates a hub with no connections.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// AddConnection registers conn and sends it the current message, if any.
func (h *Hub) AddConnection(conn *websocket.Conn, initial *WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn] = true
	logger.Infof("ws: display connected (total: %d)", len(h.conns))
	if initial != nil {
		data, err := json.Marshal(initial)
		if err != nil {
			logger.Errorf("ws: marshal error: %v", err)
			return
		}
		h.writeLocked(conn, data)
	}
}

// RemoveConnection closes conn and forgets it. Unknown connections are ignored.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
		logger.Infof("ws: display disconnected (total: %d)", len(h.conns))
	}
}

// Count returns the number of connected displays.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends message to every display. A display that fails to
// receive it is dropped.
func (h *Hub) Broadcast(message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("ws: marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		h.writeLocked(conn, data)
	}
}

func (h *Hub) writeLocked(conn *websocket.Conn, data []byte) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Warningf("ws: write error: %v", err)
		conn.Close()
		delete(h.conns, conn)
	}
}
