package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(f.msgs) == 0 {
		// Drained; behave like a cancelled fetch.
		return kafka.Message{}, context.Canceled
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func envelopeMessage(t *testing.T, eventType string) kafka.Message {
	t.Helper()
	env, err := NewEnvelope(eventType, CaseChangedPayload{CaseID: "case-1"})
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Topic: TopicCaseChanged, Value: value}
}

func TestConsumer_Run_HandlesAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		envelopeMessage(t, "new_act"),
		envelopeMessage(t, "status_change"),
	}}
	c := &Consumer{reader: reader, logger: logging.NewNopLogger()}

	var seen []string
	err := c.Run(context.Background(), func(ctx context.Context, env *EventEnvelope) error {
		seen = append(seen, env.EventType)
		return nil
	})
	require.Error(t, err, "drained fake reader surfaces a fetch error")
	assert.Equal(t, []string{"new_act", "status_change"}, seen)
	assert.Len(t, reader.committed, 2)
}

func TestConsumer_Run_MalformedMessageSkipped(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: TopicCaseChanged, Value: []byte("not json")},
	}}
	c := &Consumer{reader: reader, logger: logging.NewNopLogger()}

	handled := 0
	_ = c.Run(context.Background(), func(ctx context.Context, env *EventEnvelope) error {
		handled++
		return nil
	})
	assert.Zero(t, handled)
	assert.Len(t, reader.committed, 1, "malformed message is committed away")
}

func TestConsumer_Run_HandlerErrorLeavesOffset(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{envelopeMessage(t, "new_act")}}
	c := &Consumer{reader: reader, logger: logging.NewNopLogger()}

	_ = c.Run(context.Background(), func(ctx context.Context, env *EventEnvelope) error {
		return errors.New(errors.ErrCodeInternal, "boom")
	})
	assert.Empty(t, reader.committed)
}

func TestConsumer_Run_CancelledContextReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Consumer{reader: &fakeReader{}, logger: logging.NewNopLogger()}

	assert.NoError(t, c.Run(ctx, func(ctx context.Context, env *EventEnvelope) error { return nil }))
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(Config{}, TopicCaseChanged, logging.NewNopLogger())
	assert.Error(t, err)

	_, err = NewConsumer(Config{Brokers: []string{"localhost:9092"}}, TopicCaseChanged, logging.NewNopLogger())
	assert.Error(t, err)
}
