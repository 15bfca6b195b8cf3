package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"account-service/internal/interfaces"
	"account-service/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ interfaces.EventPublisher = (*KafkaEventPublisher)(nil)

// KafkaEventPublisher writes account events to a Kafka topic keyed by user id,
// so events of one user stay ordered within a partition.
type KafkaEventPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaEventPublisher returns a publisher writing to topic on brokers.
func NewKafkaEventPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaEventPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaEventPublisher{
		writer: w,
		logger: logger.Named("KafkaEventPublisher").With(zap.String("topic", topic)),
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event models.AccountEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal account event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish account event", zap.String("type", event.Type), zap.Error(err))
		return fmt.Errorf("failed to publish account event: %w", err)
	}
	p.logger.Debug("Account event published", zap.String("type", event.Type), zap.String("userID", event.UserID.String()))
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopEventPublisher drops every event. It is used when no brokers are configured.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, models.AccountEvent) error { return nil }
func (NoopEventPublisher) Close() error                                       { return nil }
