package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// IReader is the part of kafka.Reader the consumer uses.
type IReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Handler func(ctx context.Context, ev OrderConfirmed) error

type Consumer struct {
	reader   IReader
	handle   Handler
	validate *validator.Validate
	logger   *zap.Logger
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  1 * time.Second,
	})
}

func NewConsumer(reader IReader, handle Handler, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:   reader,
		handle:   handle,
		validate: validator.New(),
		logger:   logger,
	}
}

// Start reads until ctx is cancelled. Bad messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting order events consumer")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Stopping order events consumer")
				return nil
			}
			c.logger.Error("Failed to read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if err := c.process(ctx, msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	var ev OrderConfirmed
	decoder := json.NewDecoder(bytes.NewReader(msg.Value))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if err := c.validate.Struct(ev); err != nil {
		return fmt.Errorf("validate event: %w", err)
	}
	if err := c.handle(ctx, ev); err != nil {
		return fmt.Errorf("handle event: %w", err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
