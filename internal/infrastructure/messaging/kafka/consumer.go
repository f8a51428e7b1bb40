package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// Handler processes one decoded envelope.  Returning an error leaves the
// offset uncommitted so the message is redelivered.
type Handler func(ctx context.Context, env *EventEnvelope) error

// readerAPI abstracts kafka.Reader for testing.
type readerAPI interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads envelopes from one topic within a consumer group.
type Consumer struct {
	reader readerAPI
	logger logging.Logger
}

// NewConsumer builds a group consumer for the topic.
func NewConsumer(cfg Config, topic string, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.NewValidation("kafka brokers cannot be empty")
	}
	if cfg.GroupID == "" {
		return nil, errors.NewValidation("kafka group id cannot be empty")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   topic,
	})
	return &Consumer{reader: reader, logger: log.Named("kafka.consumer")}, nil
}

// Run fetches and handles messages until the context is cancelled.  Envelopes
// that fail to decode are committed and skipped: redelivery cannot fix a
// malformed message.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch message")
		}

		var env EventEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Warn("skipping malformed event",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err),
			)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.ErrCodeExternalService, "failed to commit offset")
			}
			continue
		}

		if err := handle(ctx, &env); err != nil {
			c.logger.Error("event handler failed, message will be redelivered",
				logging.String("event_type", env.EventType),
				logging.Err(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to commit offset")
		}
	}
}

// Close shuts the reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
