package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// DefaultEventPageSize is used when a listing asks for no explicit limit
const DefaultEventPageSize = 50

// MaxEventPageSize caps a single listing page
const MaxEventPageSize = 500

// PaymentService processes split payments
type PaymentService struct {
	ledger   domain.Ledger
	binder   *AccountBinder
	executor *TransferExecutor
	emitter  *EventEmitter
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(ledger domain.Ledger, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		ledger:   ledger,
		binder:   NewAccountBinder(),
		executor: NewTransferExecutor(),
		emitter:  NewEventEmitter(),
		logger:   logger.With().Str("component", "payment_service").Logger(),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.emitter.SetEventPublisher(publisher)
}

// ProcessPayment validates a payment call and, if every check passes, moves
// each amount from the payer's token account to the matching recipient account
// and records one PaymentProcessedEvent. Either all transfers and the event
// commit together or nothing changes.
func (s *PaymentService) ProcessPayment(ctx context.Context, cfg *domain.ProgramConfig, call domain.PaymentCall) (*domain.PaymentProcessedEvent, error) {
	if cfg == nil {
		return nil, domain.ErrNotInitialized
	}

	batch, err := domain.NewPaymentBatch(call.Request, call.DestinationAccounts)
	if err != nil {
		s.logRejected(call, err)
		return nil, err
	}
	// associated addresses derive from the configured token program, so no destination can match another one
	if call.TokenProgram != cfg.TokenProgram {
		err := fmt.Errorf("token program %s: %w", call.TokenProgram, domain.ErrInvalidTokenAccount)
		s.logRejected(call, err)
		return nil, err
	}
	total, err := batch.Total()
	if err != nil {
		s.logRejected(call, err)
		return nil, err
	}

	start := time.Now()
	var event *domain.PaymentProcessedEvent
	err = s.ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		err := tx.CreateOrder(ctx, &domain.Order{
			OrderID: batch.OrderID,
			Hash:    batch.Hash(),
			Payer:   call.Payer,
		})
		if err != nil {
			return err
		}

		bindings, err := s.binder.Bind(ctx, tx, cfg, batch, call.PayerTokenAccount)
		if err != nil {
			return err
		}

		if err := s.executor.Execute(ctx, tx, cfg, call.Payer, call.PayerTokenAccount, bindings); err != nil {
			return err
		}

		event, err = s.emitter.Record(ctx, tx, cfg, call, batch)
		return err
	})
	if err != nil {
		s.logRejected(call, err)
		return nil, err
	}

	s.emitter.Publish(event)

	s.logger.Info().
		Uint64("order_id", event.OrderID).
		Str("payer", call.Payer.String()).
		Int("recipients", batch.Len()).
		Uint64("total", total).
		Int64("timestamp", event.Timestamp).
		Dur("elapsed", time.Since(start)).
		Msg("Payment processed")

	return event, nil
}

// GetSettlement returns the event recorded for an order id
func (s *PaymentService) GetSettlement(ctx context.Context, orderID uint64) (*domain.PaymentProcessedEvent, error) {
	return s.ledger.GetEventByOrderID(ctx, orderID)
}

// ListSettlements pages through recorded events in commit order
func (s *PaymentService) ListSettlements(ctx context.Context, afterSequence int64, limit int) ([]*domain.PaymentProcessedEvent, error) {
	if limit <= 0 {
		limit = DefaultEventPageSize
	}
	if limit > MaxEventPageSize {
		limit = MaxEventPageSize
	}
	if afterSequence < 0 {
		afterSequence = 0
	}
	return s.ledger.ListEvents(ctx, afterSequence, limit)
}

func (s *PaymentService) logRejected(call domain.PaymentCall, err error) {
	ev := s.logger.Warn().
		Err(err).
		Uint64("order_id", call.Request.OrderID).
		Str("payer", call.Payer.String())
	if code := domain.ErrorCode(err); code != "" {
		ev = ev.Str("code", code)
	}
	ev.Msg("Payment rejected")
}
