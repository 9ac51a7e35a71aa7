package service

import (
	"context"
	"fmt"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
)

// EventEmitter records one PaymentProcessedEvent per successful payment and,
// once the payment has committed, fans it out to live subscribers.
type EventEmitter struct {
	eventPublisher websocket.EventPublisher
}

// NewEventEmitter creates a new EventEmitter
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{}
}

// SetEventPublisher sets the event publisher for real-time updates
func (e *EventEmitter) SetEventPublisher(publisher websocket.EventPublisher) {
	e.eventPublisher = publisher
}

// Record appends the event to the ledger's event log inside the payment's atomic unit.
// The timestamp is the ledger clock for that unit.
func (e *EventEmitter) Record(ctx context.Context, tx domain.LedgerTx, cfg *domain.ProgramConfig, call domain.PaymentCall, batch *domain.PaymentBatch) (*domain.PaymentProcessedEvent, error) {
	now, err := tx.Now(ctx)
	if err != nil {
		return nil, err
	}
	ts := now.Unix()
	if ts <= 0 {
		return nil, fmt.Errorf("ledger clock returned non-positive timestamp %d", ts)
	}

	event := &domain.PaymentProcessedEvent{
		OrderID:             batch.OrderID,
		Hash:                batch.Hash(),
		Payer:               call.Payer,
		PayerTokenAccount:   call.PayerTokenAccount,
		Mint:                cfg.Mint,
		Decimals:            cfg.Decimals,
		Amounts:             batch.Amounts(),
		Recipients:          batch.Recipients(),
		DestinationAccounts: append([]domain.Identity(nil), call.DestinationAccounts...),
		Timestamp:           ts,
	}
	if err := tx.AppendEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Publish notifies the payer and each distinct recipient. Call only after commit.
func (e *EventEmitter) Publish(event *domain.PaymentProcessedEvent) {
	if e.eventPublisher == nil {
		return
	}

	msg := websocket.PaymentProcessed(event)
	notified := make(map[domain.Identity]struct{}, len(event.Recipients)+1)
	for _, id := range append([]domain.Identity{event.Payer}, event.Recipients...) {
		if _, ok := notified[id]; ok {
			continue
		}
		notified[id] = struct{}{}
		e.eventPublisher.Publish(id, msg)
	}
}
