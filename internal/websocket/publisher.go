package websocket

import "github.com/dafibh/bazaar/bazaar-backend/internal/domain"

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients following the identity
	Publish(identity domain.Identity, event Event)
}

var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the identity's followers
func (h *Hub) Publish(identity domain.Identity, event Event) {
	h.Broadcast(identity, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(identity domain.Identity, event Event) {}
