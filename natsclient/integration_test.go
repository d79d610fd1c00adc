package natsclient

import (
	"context"
	"testing"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_PublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := NewTestClient(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	err := tc.Client.Subscribe(ctx, "text.line", func(_ context.Context, data []byte) {
		received <- data
	})
	require.NoError(t, err)

	err = tc.Client.Publish(ctx, "text.line", []byte("hello streaming world"))
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, "hello streaming world", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestIntegration_RequestReply(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := NewTestClient(t)
	ctx := context.Background()

	conn := tc.GetNativeConnection()
	sub, err := conn.Subscribe("pipeline.status", func(msg *gonats.Msg) {
		_ = msg.Respond([]byte(`{"status":"running"}`))
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reply, err := tc.Client.Request(reqCtx, "pipeline.status", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"running"}`, string(reply))
}

func TestIntegration_JetStreamRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := NewTestClient(t, WithJetStream())
	ctx := context.Background()

	_, err := tc.Client.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "TEXT_LINES",
		Subjects: []string{"text.line.>"},
		Storage:  jetstream.MemoryStorage,
	})
	require.NoError(t, err)

	received := make(chan []byte, 1)
	err = tc.Client.ConsumeStream(ctx, "TEXT_LINES", "text.line.raw", func(data []byte) {
		received <- data
	})
	require.NoError(t, err)

	err = tc.Client.PublishToStream(ctx, "text.line.raw", []byte("to be or not to be"))
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, "to be or not to be", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream message")
	}

	stream, err := tc.Client.GetStream(ctx, "TEXT_LINES")
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}
