package consumer

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"user_id":"u-1","username":"alice"}`)
	msg := kafka.Message{
		Topic:     "user_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("user.created")},
			{Key: "aggregate_id", Value: []byte("u-1")},
		},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, cancel: cancel}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "user.created", handler.last.EventType)
	require.Equal(t, "u-1", handler.last.AggregateID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "exercise_events",
		Offset: 20,
		Time:   time.Now().UTC(),
		Value:  []byte(`{"exercise_id":7}`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("exercise.logged")},
		},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, cancel: cancel}
	handler := &stubHandler{err: errors.New("insert failed")}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Zero(t, reader.commitCalls, "handler errors must not commit the offset")
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	missingHeader := kafka.Message{
		Topic: "user_events",
		Value: []byte(`{"user_id":"u-2"}`),
	}
	invalidJSON := kafka.Message{
		Topic: "user_events",
		Value: []byte(`{not json`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("user.created")},
		},
	}

	reader := &stubReader{messages: []kafka.Message{missingHeader, invalidJSON}, cancel: cancel}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls, "malformed messages must not reach the handler")
	require.Equal(t, 2, reader.commitCalls, "malformed messages are committed to avoid poison pills")
}

type stubReader struct {
	messages    []kafka.Message
	next        int
	commitCalls int
	cancel      context.CancelFunc
}

func (r *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.next < len(r.messages) {
		msg := r.messages[r.next]
		r.next++
		return msg, nil
	}
	r.cancel()
	return kafka.Message{}, context.Canceled
}

func (r *stubReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.commitCalls += len(msgs)
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	last  Message
	err   error
}

func (h *stubHandler) Handle(ctx context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
