package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafka_config "sweeper/pkg/kafka/config"
	"sweeper/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducer_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewProducer(nil, "topic", logger.Discard())
	assert.Error(t, err)

	_, err = NewProducer(&kafka_config.Config{}, "topic", logger.Discard())
	assert.Error(t, err)

	_, err = NewProducer(&kafka_config.Config{Brokers: []string{"localhost:9092"}}, "", logger.Discard())
	assert.Error(t, err)

	p, err := NewProducer(&kafka_config.Config{
		Brokers:             []string{"localhost:9092"},
		ProducerMaxAttempts: 1,
		ProducerCompression: "gzip",
	}, "space-sweeps", logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "space-sweeps", p.Topic())
	require.NoError(t, p.Close())
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "space-sweeps")

	msg, err := NewMessage().
		WithKey("space-cleanup").
		WithValue(map[string]string{"status": "ok"}).
		WithEventType("sweep.completed").
		Build()
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), msg))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "space-cleanup", string(w.messages[0].Key))
	assert.JSONEq(t, `{"status":"ok"}`, string(w.messages[0].Value))

	headers := map[string]string{}
	for _, h := range w.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "sweep.completed", headers[HeaderEventType])
	assert.NotEmpty(t, headers[HeaderEventID])
	assert.NotEmpty(t, headers[HeaderTimestamp])
}

func TestProducer_PublishValidation(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, "space-sweeps")

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "space-sweeps")

	var order []string
	for _, name := range []string{"outer", "inner"} {
		name := name
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			assert.Equal(t, "space-sweeps", msg.Topic)
			return next(ctx, msg)
		})
	}

	require.NoError(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("{}")}))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestProducer_WriteErrorIsWrapped(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	p := NewProducerWithWriter(&fakeWriter{err: cause}, "space-sweeps")

	err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("{}")})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeTransient, ClassifyError(err))
}

func TestMessageBuilder_EncodingFailure(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}
