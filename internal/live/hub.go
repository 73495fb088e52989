// Package live pushes dashboard events to signed-in browsers over websockets
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Event types
const (
	EventCommandResult = "command_result"
	EventProcessResult = "process_result"
	EventDevMode       = "devmode_changed"
	EventMaintenance   = "maintenance_changed"
	EventPremium       = "premium_changed"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
)

// Event is one message sent to clients. An event with UserID is delivered to
// that user and to admins; AdminOnly events go to admins only.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"-"`
	AdminOnly bool   `json:"-"`
}

func (e Event) visibleTo(u *session.User) bool {
	if u.IsAdmin {
		return true
	}
	if e.AdminOnly {
		return false
	}
	return e.UserID == "" || e.UserID == u.ID
}

// Client is one websocket connection
type Client struct {
	hub  *Hub
	user *session.User
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts events
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates a hub. allowedOrigins restricts the websocket Origin header;
// empty allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[*Client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.LiveClients.Inc()
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.LiveClients.Dec()
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends an event to every client allowed to see it. Slow clients
// drop messages instead of blocking the publisher.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(e)
	if err != nil {
		logger.Error("Error serializando evento "+e.Type+": "+err.Error(), "Live")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !e.visibleTo(c.user) {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// Handler upgrades a signed-in request to a websocket and serves it until
// the connection closes.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := session.Get(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("No se pudo abrir websocket: "+err.Error(), "Live")
			return
		}

		client := &Client{hub: h, user: user, conn: conn, send: make(chan []byte, sendBufferSize)}
		h.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump discards incoming messages and returns when the connection closes
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
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

// writePump drains the send channel and pings to detect stale connections
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
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
