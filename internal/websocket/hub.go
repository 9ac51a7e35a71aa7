package websocket

import (
	"errors"
	"sync"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	Identity() domain.Identity
	Follows(entity EntityType) bool
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections grouped by the identity they follow.
// It is safe for concurrent use.
type Hub struct {
	subscribers map[domain.Identity]map[string]ClientInterface
	mu          sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[domain.Identity]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its identity
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity := client.Identity()
	if h.subscribers[identity] == nil {
		h.subscribers[identity] = make(map[string]ClientInterface)
	}
	h.subscribers[identity][client.ID()] = client

	log.Debug().
		Str("identity", identity.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity := client.Identity()
	clients, ok := h.subscribers[identity]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}

	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.subscribers, identity)
	}

	log.Debug().
		Str("identity", identity.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to every client following the identity and the event's entity
func (h *Hub) Broadcast(identity domain.Identity, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("identity", identity.String()).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.subscribers[identity]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		if client.Follows(event.Entity) {
			clientsCopy = append(clientsCopy, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("identity", identity.String()).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("identity", identity.String()).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients following an identity
func (h *Hub) ClientCount(identity domain.Identity) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[identity])
}

// TotalClientCount returns the number of connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.subscribers {
		total += len(clients)
	}
	return total
}
