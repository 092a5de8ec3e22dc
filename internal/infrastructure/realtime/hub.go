// Package realtime pushes domain events to the websocket connections of the
// user they belong to
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is the frame sent to browsers
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type delivery struct {
	userID  uuid.UUID
	payload []byte
}

// Hub tracks connections per user and fans messages out to them. All
// connection bookkeeping happens on the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[uuid.UUID]map[*client]struct{}
	register   chan *client
	unregister chan *client
	deliver    chan delivery
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	count      chan chan map[uuid.UUID]int
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewHub creates a hub. allowedOrigins empty accepts same-origin requests only.
func NewHub(allowedOrigins []string, metrics *monitoring.Metrics, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		count:      make(chan chan map[uuid.UUID]int),
		metrics:    metrics,
		logger:     logger.Named("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run owns the connection registry until ctx ends or Stop is called
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Realtime hub started")
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case c := <-h.register:
			conns, ok := h.clients[c.userID]
			if !ok {
				conns = make(map[*client]struct{})
				h.clients[c.userID] = conns
			}
			conns[c] = struct{}{}
			h.metrics.RealtimeConnected(1)
			h.logger.Debug("Client connected", zap.String("user_id", c.userID.String()), zap.Int("connections", len(conns)))

		case c := <-h.unregister:
			h.remove(c)

		case d := <-h.deliver:
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.payload:
				default:
					h.logger.Warn("Dropping slow client", zap.String("user_id", d.userID.String()))
					h.remove(c)
				}
			}

		case reply := <-h.count:
			counts := make(map[uuid.UUID]int, len(h.clients))
			for id, conns := range h.clients {
				counts[id] = len(conns)
			}
			reply <- counts
		}
	}
}

func (h *Hub) remove(c *client) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.metrics.RealtimeConnected(-1)
}

func (h *Hub) closeAll() {
	h.Stop()
	for _, conns := range h.clients {
		for c := range conns {
			h.remove(c)
		}
	}
	h.wg.Wait()
	h.logger.Info("Realtime hub stopped")
}

// Stop ends Run and closes every connection
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// SendToUser queues a message for every connection of userID. It never
// blocks; messages are dropped when the hub is stopped or saturated.
func (h *Hub) SendToUser(userID uuid.UUID, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode realtime message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	select {
	case <-h.done:
	case h.deliver <- delivery{userID: userID, payload: payload}:
	default:
		h.logger.Warn("Realtime queue full, dropping message", zap.String("type", msg.Type))
	}
}

// Connections reports open connections per user
func (h *Hub) Connections(ctx context.Context) map[uuid.UUID]int {
	reply := make(chan map[uuid.UUID]int, 1)
	select {
	case h.count <- reply:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return nil
	}
	select {
	case counts := <-reply:
		return counts
	case <-ctx.Done():
		return nil
	}
}

// ServeHTTP upgrades an authenticated request at /ws
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.NewUnauthorizedError(""))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, userID: identity.UserID, send: make(chan []byte, sendBuffer)}
	h.wg.Add(2)
	select {
	case h.register <- c:
	case <-h.done:
		h.wg.Add(-2)
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan []byte
}

// readPump discards inbound frames and keeps the pong deadline alive
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
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

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
