package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/exposingwithjay/cybersentinel-backend/internal/metrics"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeUnsubscribe   MessageType = "unsubscribe"
	MessageTypeNewSubmission MessageType = "new_submission"
	MessageTypeError         MessageType = "error"
)

// Topics a client can subscribe to
const (
	TopicAll    = "all"
	TopicUrgent = "urgent"
)

// ValidTopic reports whether topic is one the hub publishes to
func ValidTopic(topic string) bool {
	return topic == TopicAll || topic == TopicUrgent
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    MessageType `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Message interface{} `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Topic subscriptions: topic -> set of clients
	subscriptions map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe to topic
	subscribe chan *subscriptionRequest

	// Unsubscribe from topic
	unsubscribeTopic chan *subscriptionRequest

	// Broadcast to topic subscribers
	broadcast chan *broadcastMessage

	// Closed by Stop to end Run
	done     chan struct{}
	stopOnce sync.Once

	// Guards the maps for readers outside Run
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

type broadcastMessage struct {
	topic   string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:          make(map[*Client]bool),
		subscriptions:    make(map[string]map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		subscribe:        make(chan *subscriptionRequest),
		unsubscribeTopic: make(chan *subscriptionRequest),
		broadcast:        make(chan *broadcastMessage, 256),
		done:             make(chan struct{}),
		logger:           logger,
	}
}

// WithMetrics reports the connected client count to m
func (h *Hub) WithMetrics(m *metrics.Metrics) *Hub {
	h.metrics = m
	return h
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.subscriptions = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			h.metrics.SetFeedClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetFeedClients(n)
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Remove from all subscriptions
				for topic, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, topic)
					}
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetFeedClients(n)
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.clients[req.client] {
				if h.subscriptions[req.topic] == nil {
					h.subscriptions[req.topic] = make(map[*Client]bool)
				}
				h.subscriptions[req.topic][req.client] = true
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed", slog.String("topic", req.topic))
			}

		case req := <-h.unsubscribeTopic:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.topic]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.topic)
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unsubscribed", slog.String("topic", req.topic))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.subscriptions[msg.topic] {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends Run and closes every client's send channel
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe subscribes a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.done:
	}
}

// Unsubscribe unsubscribes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	select {
	case h.unsubscribeTopic <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[topic])
}

// PublishSubmission fans an accepted submission out to the "all" topic and,
// when urgent, to the "urgent" topic. It never blocks the caller.
func (h *Hub) PublishSubmission(msg *models.ContactMessage) {
	if msg == nil {
		return
	}
	h.publish(TopicAll, msg)
	if msg.Urgent {
		h.publish(TopicUrgent, msg)
	}
}

func (h *Hub) publish(topic string, payload *models.ContactMessage) {
	data, err := json.Marshal(WSMessage{
		Type:    MessageTypeNewSubmission,
		Topic:   topic,
		Message: payload,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{topic: topic, message: data}:
	case <-h.done:
	default:
		if h.logger != nil {
			h.logger.Warn("live feed backlog full, dropping event", slog.String("id", payload.ID))
		}
	}
}
