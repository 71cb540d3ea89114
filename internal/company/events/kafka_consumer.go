package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler func(context.Context, Event) error
}

// NewConsumer consumes company events from topic as part of groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	}), logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger.Named("kafka_consumer"),
		handler: func(context.Context, Event) error { return nil },
	}
}

// Run fetches, handles and commits messages until ctx is done. A message
// whose handler fails is not committed itself, but the reader has already
// moved past it and the next commit on its partition covers it, so it is
// skipped. Its partition and offset are logged for a manual replay.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("Failed to parse event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			continue
		}

		if err := c.handler(ctx, event); err != nil {
			c.logger.Error("Failed to handle event, skipping",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
			)
		}
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
