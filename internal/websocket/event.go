package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeProcessed EventType = "processed"
	EventTypeCredited  EventType = "credited"
	EventTypeUpdated   EventType = "updated"
	EventTypeRejected  EventType = "rejected"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypePayment      EntityType = "payment"
	EntityTypeTokenAccount EntityType = "token_account"

	// EntityTypeSubscription marks replies to a client's own commands
	EntityTypeSubscription EntityType = "subscription"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "payment.processed"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentProcessed creates a payment.processed event
func PaymentProcessed(payload interface{}) Event {
	return NewEvent(EventTypeProcessed, EntityTypePayment, payload)
}

// TokenAccountCredited creates a token_account.credited event
func TokenAccountCredited(payload interface{}) Event {
	return NewEvent(EventTypeCredited, EntityTypeTokenAccount, payload)
}

// SubscriptionUpdated creates a subscription.updated reply
func SubscriptionUpdated(status SubscriptionStatus) Event {
	return NewEvent(EventTypeUpdated, EntityTypeSubscription, status)
}

// SubscriptionRejected creates a subscription.rejected reply
func SubscriptionRejected(reason CommandError) Event {
	return NewEvent(EventTypeRejected, EntityTypeSubscription, reason)
}
