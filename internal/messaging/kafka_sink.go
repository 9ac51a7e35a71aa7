package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// EventTypePaymentProcessed is the header value identifying settlement records
const EventTypePaymentProcessed = "payment.processed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventSink publishes settlement events to a Kafka topic keyed by order id
type KafkaEventSink struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// NewKafkaEventSink creates a synchronous producer that waits for all in-sync replicas
func NewKafkaEventSink(brokers []string, topic string, logger zerolog.Logger) *KafkaEventSink {
	logger = logger.With().Str("component", "kafka_sink").Str("topic", topic).Logger()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug().Msgf(msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf(msg, args...)
		}),
	}

	return newKafkaEventSink(writer, topic, writer.WriteTimeout, logger)
}

func newKafkaEventSink(writer messageWriter, topic string, writeTimeout time.Duration, logger zerolog.Logger) *KafkaEventSink {
	return &KafkaEventSink{
		writer:       writer,
		topic:        topic,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Name identifies the sink in logs
func (s *KafkaEventSink) Name() string {
	return "kafka"
}

// Deliver writes one message per event. Messages sharing an order id land on the same partition.
func (s *KafkaEventSink) Deliver(ctx context.Context, events []*domain.PaymentProcessedEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(strconv.FormatUint(e.OrderID, 10)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(EventTypePaymentProcessed)},
				{Key: "event_id", Value: []byte(e.ID.String())},
			},
			Time: time.Unix(e.Timestamp, 0).UTC(),
		}
	}

	produceCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(produceCtx, msgs...); err != nil {
		s.logger.Error().Err(err).Int("count", len(msgs)).Msg("Failed to produce settlement events")
		return fmt.Errorf("failed to produce message to Kafka: %w", err)
	}

	s.logger.Debug().Int("count", len(msgs)).Msg("Settlement events produced")
	return nil
}

// Close flushes and closes the underlying writer
func (s *KafkaEventSink) Close() error {
	if s.writer == nil {
		return nil
	}
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	s.logger.Info().Msg("Kafka producer closed")
	return nil
}
