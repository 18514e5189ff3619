// Package ws streams recorded attendance events to WebSocket clients.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/attendance/internal/adapters/notify"
	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/pkg/logger"
	"github.com/okian/attendance/pkg/metrics"
)

const (
	sendBuffer      = 64
	broadcastBuffer = 256
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
)

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	namePrefix string // normalized; empty receives everything
}

type broadcast struct {
	name string
	data []byte
}

// Hub maintains active WebSocket clients and broadcasts events.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	broadcast  chan broadcast
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	logger     logger.Logger
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Get().Named("ws")
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcast, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run is the hub event loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			metrics.UpdateWSConnections(len(h.clients))
			h.mu.Unlock()
			h.logger.Debug(ctx, "ws client connected", logger.String("filter", c.namePrefix))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				h.drop(c)
			}
			h.mu.Unlock()
			h.logger.Debug(ctx, "ws client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.namePrefix != "" && !strings.HasPrefix(model.NormalizeName(msg.name), c.namePrefix) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn(ctx, "ws client too slow, disconnecting")
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c. Callers hold mu.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	metrics.UpdateWSConnections(len(h.clients))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Name() string { return "ws" }

// Publish queues e for every interested client.
func (h *Hub) Publish(ctx context.Context, e model.AttendanceEvent) error { //nolint:gocritic // hugeParam: events are passed by value everywhere
	data, err := notify.Encode(e)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- broadcast{name: e.DisplayName, data: data}:
		return nil
	case <-h.done:
		return notify.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request. The optional name query parameter limits
// the feed to names with that prefix.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "ws upgrade failed", logger.Error(err))
		return
	}
	c := &client{
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		namePrefix: model.NormalizeName(r.URL.Query().Get("name")),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump only watches for disconnects; clients send nothing.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
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
