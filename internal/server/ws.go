package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// progressMessage is the outgoing WebSocket message format for indexing
// progress.
type progressMessage struct {
	Type       string `json:"type"` // "progress" or "complete"
	RunID      string `json:"run_id,omitempty"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
	SourcePath string `json:"source_path,omitempty"`
	Succeeded  int    `json:"succeeded,omitempty"`
	Failed     int    `json:"failed,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
}

// progressHub fans indexing progress out to connected WebSocket clients.
// A slow or dead client is dropped rather than blocking the run.
type progressHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *progressHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *progressHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *progressHub) broadcast(msg progressMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// handleIndexingSocket upgrades the connection and streams progress
// messages until the client disconnects.
func (s *Server) handleIndexingSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}

	s.hub.add(conn)
	defer s.hub.remove(conn)

	// Clients only listen; the read loop exists to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}
	}
}
