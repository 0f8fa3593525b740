// internal/server/hub.go
package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hostdiag/preflight/internal/protocol"
)

// defaultWriteWait bounds a single send to one subscriber. A client that
// cannot drain its socket within this window is dropped.
const defaultWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is same-host; cross-origin subscribers are fine for a
	// read-only progress feed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans progress events out to all connected WebSocket clients. Writes
// are fire-and-forget: a failed write drops the connection, nothing ever
// blocks the diagnosis run.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool

	writeWait time.Duration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:     make(map[*websocket.Conn]bool),
		writeWait: defaultWriteWait,
	}
}

// ServeHTTP upgrades the request and registers the connection. The read
// loop exists only to detect the close.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	log.Println("WebSocket client connected")
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a progress event to every connected client.
func (h *Hub) Broadcast(reportID string, progress int, message string) {
	event := protocol.ProgressEvent{
		Type:     "progress",
		ReportID: reportID,
		Progress: progress,
		Message:  message,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		// The deadline keeps a subscriber with a full socket buffer from
		// stalling the diagnosis run; the write error drops it like any
		// other dead connection.
		conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		log.Println("WebSocket client disconnected")
		conn.Close()
		delete(h.conns, conn)
	}
}
