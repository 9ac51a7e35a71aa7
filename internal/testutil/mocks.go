package testutil

import (
	"context"
	"sync"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
)

// PublishedEvent is one call captured by MockEventPublisher
type PublishedEvent struct {
	Identity domain.Identity
	Event    websocket.Event
}

// MockEventPublisher records every published WebSocket event
type MockEventPublisher struct {
	mu        sync.Mutex
	published []PublishedEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(identity domain.Identity, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, PublishedEvent{Identity: identity, Event: event})
}

// Published returns a copy of everything published so far
func (m *MockEventPublisher) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.published))
	copy(out, m.published)
	return out
}

// MockEventSink is an in-memory relay sink
type MockEventSink struct {
	SinkName  string
	DeliverFn func(ctx context.Context, events []*domain.PaymentProcessedEvent) error

	mu        sync.Mutex
	delivered []*domain.PaymentProcessedEvent
	calls     int
}

// NewMockEventSink creates a new MockEventSink
func NewMockEventSink(name string) *MockEventSink {
	return &MockEventSink{SinkName: name}
}

// Name identifies the sink
func (m *MockEventSink) Name() string {
	return m.SinkName
}

// Deliver records the events unless DeliverFn fails
func (m *MockEventSink) Deliver(ctx context.Context, events []*domain.PaymentProcessedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.DeliverFn != nil {
		if err := m.DeliverFn(ctx, events); err != nil {
			return err
		}
	}
	m.delivered = append(m.delivered, events...)
	return nil
}

// Delivered returns every accepted event in delivery order
func (m *MockEventSink) Delivered() []*domain.PaymentProcessedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.PaymentProcessedEvent, len(m.delivered))
	copy(out, m.delivered)
	return out
}

// Calls returns how many times Deliver ran
func (m *MockEventSink) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FaultyLedger wraps a ledger and injects failures into its atomic units
type FaultyLedger struct {
	domain.Ledger

	// AppendEventErr fails AppendEvent when set
	AppendEventErr error
	// FailTransferAt fails the transfer with this zero-based index within a unit, when >= 0
	FailTransferAt int
	TransferErr    error
}

// NewFaultyLedger wraps a ledger with no faults armed
func NewFaultyLedger(ledger domain.Ledger) *FaultyLedger {
	return &FaultyLedger{Ledger: ledger, FailTransferAt: -1}
}

// Atomic runs fn with a fault-injecting transaction
func (f *FaultyLedger) Atomic(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	return f.Ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		return fn(&faultyTx{LedgerTx: tx, ledger: f})
	})
}

type faultyTx struct {
	domain.LedgerTx
	ledger    *FaultyLedger
	transfers int
}

func (t *faultyTx) TransferChecked(ctx context.Context, ix domain.TransferInstruction) error {
	i := t.transfers
	t.transfers++
	if i == t.ledger.FailTransferAt {
		return t.ledger.TransferErr
	}
	return t.LedgerTx.TransferChecked(ctx, ix)
}

func (t *faultyTx) AppendEvent(ctx context.Context, event *domain.PaymentProcessedEvent) error {
	if t.ledger.AppendEventErr != nil {
		return t.ledger.AppendEventErr
	}
	return t.LedgerTx.AppendEvent(ctx, event)
}
