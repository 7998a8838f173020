package emitters

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/logger"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the emitter uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes transfer events to a Kafka topic, keyed by
// correlation id so the events of one transfer stay in one partition.
type KafkaEmitter struct {
	writer messageWriter
	logger *zerolog.Logger
	mu     sync.Mutex
}

var _ events.Emitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates an emitter with an asynchronous writer, so event
// delivery never waits on the broker. Delivery failures are logged.
func NewKafkaEmitter(brokerAddress, topic string, batchSize int, batchTimeout time.Duration, log *zerolog.Logger) *KafkaEmitter {
	l := logger.OrNop(log)
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddress),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    batchSize,
			BatchTimeout: batchTimeout,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					l.Error().
						Err(err).
						Int("messages", len(messages)).
						Str("topic", topic).
						Msg("Failed to deliver events to Kafka")
				}
			},
		},
		logger: l,
	}
}

func (k *KafkaEmitter) EmitEvent(event events.Event) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer == nil {
		return errors.New("kafka emitter is closed")
	}

	value, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(event.CorrelationID()),
		Value: value,
		Time:  event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	k.logger.Debug().
		Str("event", string(event.Kind())).
		Str("correlationId", event.CorrelationID()).
		Msg("Queued event for Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
