package notification

import (
	"sync"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
)

// Realtime message types.
const (
	MessageTypeAlert        = "alert"
	MessageTypeNotification = "notification"
)

// clientBufferSize bounds queued messages per connection. A slow client
// loses messages instead of stalling the sender.
const clientBufferSize = 64

// Message is one realtime frame sent to websocket clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one registered realtime connection.
type Client struct {
	UserID string
	send   chan Message
	once   sync.Once
}

// Messages returns the client's outbound queue. It is closed on Unregister.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// Hub fans realtime messages out to registered connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	metrics *observability.Metrics
	log     logger.Logger
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(metrics *observability.Metrics, log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		metrics: metrics,
		log:     log,
	}
}

// Register adds a connection for userID. userID may be empty for anonymous
// alert-only listeners.
func (h *Hub) Register(userID string) *Client {
	c := &Client{UserID: userID, send: make(chan Message, clientBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WebsocketClients.Inc()
	}
	h.log.Debug("realtime client registered",
		logger.String("user_id", userID),
		logger.Int("clients", n))
	return c
}

// Unregister removes a connection and closes its queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.once.Do(func() { close(c.send) })
	if h.metrics != nil {
		h.metrics.WebsocketClients.Dec()
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every connection.
func (h *Hub) Broadcast(msg Message) {
	h.fanout(msg, func(*Client) bool { return true })
}

// SendToUser queues msg for the user's connections only.
func (h *Hub) SendToUser(userID string, msg Message) {
	if userID == "" {
		return
	}
	h.fanout(msg, func(c *Client) bool { return c.UserID == userID })
}

// ForwardAlerts broadcasts every persisted alert published on bus.
func (h *Hub) ForwardAlerts(bus *alerting.AlertEventBus) {
	bus.Subscribe(func(event *alerting.AlertEvent) {
		if event == nil || event.Alert == nil {
			return
		}
		h.Broadcast(Message{Type: MessageTypeAlert, Data: event.Alert, Timestamp: event.Timestamp})
	})
}

func (h *Hub) fanout(msg Message, match func(*Client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.Warn("realtime client queue full, dropping message",
				logger.String("user_id", c.UserID),
				logger.String("type", msg.Type))
		}
	}
}
