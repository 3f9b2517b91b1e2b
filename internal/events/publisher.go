package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishOrderConfirmed(ctx context.Context, ev OrderConfirmed) error
	Close() error
}

// IWriter is the part of kafka.Writer the publisher uses.
type IWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer IWriter
	logger *zap.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaPublisher(writer IWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// PublishOrderConfirmed keys the message by submission so redeliveries land
// on the same partition.
func (p *KafkaPublisher) PublishOrderConfirmed(ctx context.Context, ev OrderConfirmed) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.SubmissionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("order.confirmed")},
		},
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 10 * time.Second

	return backoff.RetryNotify(
		func() error {
			return p.writer.WriteMessages(ctx, msg)
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			p.logger.Warn("Kafka publish failed, retrying...",
				zap.String("submission_id", ev.SubmissionID),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct {
	logger *zap.Logger
}

func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) PublishOrderConfirmed(_ context.Context, ev OrderConfirmed) error {
	p.logger.Debug("Event publishing disabled", zap.String("submission_id", ev.SubmissionID))
	return nil
}

func (p *NopPublisher) Close() error { return nil }
