package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"
	infraconfig "bunkerprices-service/internal/infrastructure/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var _ application.Notifier = (*Hub)(nil)

const sendBuffer = 8

// PriceMessage is pushed to every subscriber after a successful poll.
type PriceMessage struct {
	Type       string       `json:"type"`
	RecordedAt time.Time    `json:"recordedAt"`
	Prices     []PriceValue `json:"prices"`
}

type PriceValue struct {
	ID    string   `json:"id"`
	Value *float64 `json:"value"`
}

// Hub fans poll results out to websocket subscribers. Slow subscribers are
// dropped rather than allowed to block a poll.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(allowedOrigins []string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{clients: map[*client]struct{}{}, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws.upgrade_failed", zap.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws.subscribed", zap.String("client_id", c.id), zap.Int("subscribers", n))

	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; subscribers never send data.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * infraconfig.DefaultWSPingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * infraconfig.DefaultWSPingInterval))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(infraconfig.DefaultWSPingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(infraconfig.DefaultWSWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(c)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(infraconfig.DefaultWSWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.once.Do(func() { close(c.send) })
		h.log.Info("ws.unsubscribed", zap.String("client_id", c.id))
	}
}

func (h *Hub) PollCompleted(_ context.Context, res domain.PollResult) {
	msg := PriceMessage{Type: "prices", RecordedAt: res.RecordedAt, Prices: make([]PriceValue, 0, len(res.Snapshots))}
	for _, s := range res.Snapshots {
		msg.Prices = append(msg.Prices, PriceValue{ID: string(s.InstrumentID), Value: s.Value})
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("ws.encode_failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()
	for _, c := range slow {
		h.log.Warn("ws.slow_subscriber_dropped", zap.String("client_id", c.id))
		h.drop(c)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.drop(c)
	}
}
