// Package live pushes timetable changes to websocket subscribers. With Redis
// configured, events published on one instance reach subscribers of all
// instances.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"srik/services/timetable/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type Event struct {
	Type    string    `json:"type"`
	TermID  int       `json:"term_id"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

type Hub struct {
	redis   *redis.Client
	channel string
	logger  *zap.Logger

	upgrader   websocket.Upgrader
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub builds a hub. rdb may be nil, in which case events stay local.
func NewHub(rdb *redis.Client, channel string, logger *zap.Logger) *Hub {
	if channel == "" {
		channel = "timetable:events"
	}
	return &Hub{
		redis:   rdb,
		channel: channel,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run delivers events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.redis != nil {
		sub := h.redis.Subscribe(ctx, h.channel)
		defer sub.Close()
		go h.relay(ctx, sub.Channel())
	}
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			metrics.LiveSubscribers.Set(0)
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			metrics.LiveSubscribers.Inc()
		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				metrics.LiveSubscribers.Dec()
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) relay(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			select {
			case h.broadcast <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			metrics.LiveSubscribers.Dec()
		}
	}
}

// Subscribers returns the number of connected websocket clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish broadcasts an event. Delivery is best effort: failures are logged
// and never returned to the caller that changed the timetable.
func (h *Hub) Publish(ctx context.Context, eventType string, termID int, payload any) {
	data, err := json.Marshal(Event{Type: eventType, TermID: termID, Payload: payload, At: time.Now().UTC()})
	if err != nil {
		h.logger.Warn("live event encode failed", zap.String("type", eventType), zap.Error(err))
		return
	}
	if h.redis != nil {
		if err := h.redis.Publish(ctx, h.channel, data).Err(); err != nil {
			h.logger.Warn("live event publish failed", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	case <-ctx.Done():
	}
}

// ServeWS upgrades the request and subscribes the connection to the board.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only watches for the peer going away; the board is read-only.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed", zap.Error(err))
			}
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
