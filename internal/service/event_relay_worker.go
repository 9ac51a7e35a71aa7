package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventSink receives committed settlement events for off-ledger reconciliation.
// Deliver must be safe to repeat for the same events.
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, events []*domain.PaymentProcessedEvent) error
}

// EventRelayWorker is a background worker that drains unpublished settlement
// events from the ledger into every configured sink
type EventRelayWorker struct {
	ledger    domain.Ledger
	sinks     []EventSink
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
	clock     func() time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// EventRelayWorkerConfig holds configuration for the relay worker
type EventRelayWorkerConfig struct {
	Interval  time.Duration // How often to poll for unpublished events
	BatchSize int           // Max events per delivery
}

// DefaultEventRelayWorkerConfig returns sensible defaults
func DefaultEventRelayWorkerConfig() EventRelayWorkerConfig {
	return EventRelayWorkerConfig{
		Interval:  5 * time.Second,
		BatchSize: 100,
	}
}

// RelayResult summarises one relay pass
type RelayResult struct {
	Delivered int
	Batches   int
}

// NewEventRelayWorker creates a new relay worker
func NewEventRelayWorker(ledger domain.Ledger, sinks []EventSink, logger zerolog.Logger, config EventRelayWorkerConfig) *EventRelayWorker {
	defaults := DefaultEventRelayWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}

	return &EventRelayWorker{
		ledger:    ledger,
		sinks:     sinks,
		logger:    logger.With().Str("component", "event_relay_worker").Logger(),
		interval:  config.Interval,
		batchSize: config.BatchSize,
		clock:     time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins relaying in the background
func (w *EventRelayWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	sinkNames := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		sinkNames[i] = s.Name()
	}
	w.logger.Info().
		Dur("interval", w.interval).
		Int("batch_size", w.batchSize).
		Strs("sinks", sinkNames).
		Msg("Starting event relay worker")

	go w.run(ctx)
}

// Stop gracefully stops the relay worker
func (w *EventRelayWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping event relay worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Event relay worker stopped")
}

func (w *EventRelayWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.relayAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.relayAll(ctx)
		}
	}
}

func (w *EventRelayWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

func (w *EventRelayWorker) relayAll(ctx context.Context) {
	result, err := w.RelayPending(ctx)
	if err != nil {
		w.logger.Error().Err(err).Int("delivered", result.Delivered).Msg("Event relay pass failed")
		return
	}
	if result.Delivered > 0 {
		w.logger.Info().
			Int("delivered", result.Delivered).
			Int("batches", result.Batches).
			Msg("Relayed settlement events")
	}
}

// RelayPending delivers unpublished events batch by batch until none remain.
// A batch is marked published only after every sink accepted it.
func (w *EventRelayWorker) RelayPending(ctx context.Context) (RelayResult, error) {
	var result RelayResult
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-w.stopCh:
			return result, nil
		default:
		}

		events, err := w.ledger.ListUnpublishedEvents(ctx, w.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list unpublished events: %w", err)
		}
		if len(events) == 0 {
			return result, nil
		}

		for _, sink := range w.sinks {
			if err := sink.Deliver(ctx, events); err != nil {
				return result, fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
		}

		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		if err := w.ledger.MarkEventsPublished(ctx, ids, w.clock().UTC()); err != nil {
			return result, fmt.Errorf("failed to mark events published: %w", err)
		}

		result.Delivered += len(events)
		result.Batches++

		if len(events) < w.batchSize {
			return result, nil
		}
	}
}

// IsRunning returns whether the worker is currently running
func (w *EventRelayWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
