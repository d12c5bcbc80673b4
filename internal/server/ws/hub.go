// Package ws pushes marketplace events to WebSocket clients: scan status
// changes, fresh snapshots, and command outcomes.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scimarket/scimarketd/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS middleware in front of the mux.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the wire format for every pushed event.
type envelope struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// client is one connected WebSocket peer.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans marketplace events out to all connected clients. It also
// satisfies the scan event sink, so scanners publish through it directly.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	mu      sync.RWMutex
	clients map[*client]bool

	logger *slog.Logger
}

// NewHub creates a Hub; call Run before serving connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*client]bool),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop the message rather than block
					// the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast pushes one typed event to every connected client.
func (h *Hub) Broadcast(eventType string, data any) {
	msg, err := json.Marshal(envelope{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		h.logger.Error("marshal event", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast buffer full, dropping event", slog.String("type", eventType))
	}
}

// ScanStatusChanged publishes a scan loop state transition.
func (h *Hub) ScanStatusChanged(status domain.ScanStatus) {
	h.Broadcast("scan_status", map[string]any{
		"view":       status.View.Key(),
		"state":      status.State,
		"last_scan":  status.LastScan,
		"last_error": status.LastError,
	})
}

// SnapshotPublished announces a fresh snapshot. Clients re-query the REST API
// for the records; only the summary goes over the socket.
func (h *Hub) SnapshotPublished(snap *domain.Snapshot) {
	h.Broadcast("snapshot", map[string]any{
		"view":         snap.View.Key(),
		"records":      len(snap.Records),
		"total_supply": snap.TotalSupply,
		"taken_at":     snap.TakenAt,
	})
}

// CommandResolved announces a command submission outcome.
func (h *Hub) CommandResolved(entry domain.ActivityEntry) {
	h.Broadcast("command", map[string]any{
		"id":       entry.ID,
		"command":  entry.Command,
		"token_id": entry.TokenID,
		"status":   entry.Status,
		"tx_hash":  entry.TxHash.Hex(),
		"reason":   entry.Reason,
	})
}

// HandleWS upgrades the connection and starts the client pumps.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump drains incoming frames so pongs are processed; clients are not
// expected to send anything meaningful.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
