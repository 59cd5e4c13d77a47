package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// Message types pushed to WebSocket clients.
const (
	MessageView  = "view"
	MessageAlarm = "alarm"
	MessageReset = "reset"
)

const (
	clientBuffer = 32
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Message is the envelope of every push.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ResetData lists the nodes whose transient state must be cleared.
type ResetData struct {
	NodeIDs []string `json:"node_ids"`
}

//nolint:gochecknoglobals // Shared upgrader, as gorilla recommends.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// Hub pushes engine output to connected browsers. It is both a renderer and
// a notifier. A new client first receives the latest view.
type Hub struct {
	// mu guards clients and last.
	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Render pushes a view and remembers it for late joiners.
func (h *Hub) Render(ctx context.Context, view *flow.View) {
	data, ok := encode(ctx, MessageView, view)
	if !ok {
		return
	}

	h.mu.Lock()
	h.last = data
	h.mu.Unlock()

	h.broadcast(ctx, data)
}

// ResetTransient pushes a reset for nodeIDs.
func (h *Hub) ResetTransient(ctx context.Context, nodeIDs []string) {
	if data, ok := encode(ctx, MessageReset, &ResetData{NodeIDs: nodeIDs}); ok {
		h.broadcast(ctx, data)
	}
}

// Notify pushes one message per alarm.
func (h *Hub) Notify(ctx context.Context, events []*alarm.Event) {
	for _, e := range events {
		if data, ok := encode(ctx, MessageAlarm, e); ok {
			h.broadcast(ctx, data)
		}
	}
}

// Serve upgrades the request and runs the client until it disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(ctx, "WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)

		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		addr: r.RemoteAddr,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}

	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	logger.DebugKV(ctx, "WebSocket client connected", "remote", c.addr)

	go h.writeLoop(c)
	h.readLoop(c)

	logger.DebugKV(ctx, "WebSocket client disconnected", "remote", c.addr)
}

// Close disconnects every client. Hijacked connections are not tracked by
// http.Server.Shutdown, so the owner calls this on exit.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) broadcast(ctx context.Context, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logger.WarnKV(ctx, "WebSocket client is too slow, disconnecting", "remote", c.addr)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
}

// readLoop discards client messages and keeps the pong deadline fresh.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(ctx context.Context, kind string, data any) ([]byte, bool) {
	payload, err := json.Marshal(&Message{Type: kind, Data: data})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode WebSocket message", "type", kind, "error", err)

		return nil, false
	}

	return payload, true
}
