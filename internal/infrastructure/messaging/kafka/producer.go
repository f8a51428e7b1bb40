package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// Config holds the broker connection parameters shared by producer and
// consumer.
type Config struct {
	Brokers       []string      `mapstructure:"brokers"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	SASLMechanism string        `mapstructure:"sasl_mechanism"`
	SASLUsername  string        `mapstructure:"sasl_username"`
	SASLPassword  string        `mapstructure:"sasl_password"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	GroupID       string        `mapstructure:"group_id"`
}

func (c Config) mechanism() (sasl.Mechanism, error) {
	switch c.SASLMechanism {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.SASLUsername, c.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.SASLUsername, c.SASLPassword)
	default:
		return nil, errors.NewValidation("unsupported sasl mechanism").
			WithDetail("mechanism=" + c.SASLMechanism)
	}
}

// writerAPI abstracts kafka.Writer for testing.
type writerAPI interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes envelopes, keyed by case so per-case ordering holds.
type Producer struct {
	writer writerAPI
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a producer over the configured brokers.
func NewProducer(cfg Config, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.NewValidation("kafka brokers cannot be empty")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	mech, err := cfg.mechanism()
	if err != nil {
		return nil, err
	}
	transport := &kafka.Transport{DialTimeout: 10 * time.Second, SASL: mech}
	if cfg.TLSEnabled {
		transport.TLS = &tls.Config{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxRetries + 1,
		RequiredAcks: kafka.RequireAll,
		Transport:    transport,
	}
	return &Producer{writer: writer, logger: log.Named("kafka")}, nil
}

// Publish sends one envelope to a topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, env *EventEnvelope) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeInternal, "producer is closed")
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event envelope")
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "schema_version", Value: []byte(env.SchemaVersion)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to publish event")
	}
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", env.EventType),
	)
	return nil
}

// PublishCaseChanged emits one change event.  Implements the pipeline's
// EventPublisher.
func (p *Producer) PublishCaseChanged(ctx context.Context, change caserecord.ChangeEvent) error {
	env, err := NewEnvelope(string(change.Type), CaseChangedPayload{
		CaseID:     change.CaseID,
		Radicado:   change.Radicado,
		ChangeType: change.Type,
		ActType:    change.ActType,
		ActDate:    change.ActDate,
		Detail:         change.Detail,
		Deadline:       change.Deadline,
		Classification: change.Classification,
		Extra:          change.Extra,
		ObservedAt:     change.ObservedAt,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to build change envelope")
	}
	return p.Publish(ctx, TopicCaseChanged, change.CaseID, env)
}

// Close flushes and shuts the writer down.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
