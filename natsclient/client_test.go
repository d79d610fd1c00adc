package natsclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/wordstream/metric"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.NotNil(t, client)
	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, -1, client.MaxReconnects())
	assert.Equal(t, 2*time.Second, client.ReconnectWait())
	assert.Equal(t, 30*time.Second, client.PingInterval())
	assert.Equal(t, time.Second, client.Backoff())
	assert.Equal(t, int32(0), client.Failures())
}

func TestNewClient_OptionError(t *testing.T) {
	badOpt := func(*Client) error {
		return fmt.Errorf("bad option")
	}

	client, err := NewClient("nats://localhost:4222", ClientOption(badOpt))
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusCircuitOpen, "circuit_open"},
		{ConnectionStatus(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client, err := NewClient("nats://invalid:4222")
	require.NoError(t, err)

	// Below threshold the circuit stays closed
	for i := 0; i < 4; i++ {
		client.recordFailure()
	}
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	// Threshold failure opens it
	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(5), client.Failures())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, StatusCircuitOpen, client.Status())

	client.resetCircuit()
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, time.Second, client.Backoff())
	assert.NotEqual(t, StatusCircuitOpen, client.Status())
}

func TestCircuitBreaker_ExponentialBackoff(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 2*time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 4*time.Second, client.Backoff())
}

func TestCircuitBreaker_MaxBackoffCap(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithMaxBackoff(4*time.Second))
	require.NoError(t, err)

	// Enough failure rounds to exceed the cap
	for round := 0; round < 10; round++ {
		for i := 0; i < 5; i++ {
			client.recordFailure()
		}
	}

	assert.LessOrEqual(t, client.Backoff(), 4*time.Second)
}

func TestCircuitBreaker_CustomThreshold(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCircuitBreakerThreshold(2))
	require.NoError(t, err)

	client.recordFailure()
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
}

func TestCircuitBreaker_InvalidThresholdUsesDefault(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCircuitBreakerThreshold(0))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		client.recordFailure()
	}
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
}

func TestTestCircuit_ReopensForConnectionAttempts(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	client.testCircuit()
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestConnect_CircuitOpenFailsFast(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestClientOptions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithMaxReconnects(5),
		WithReconnectWait(time.Second),
		WithPingInterval(10*time.Second),
		WithName("test-client"),
		WithCompression(true),
		WithTimeout(3*time.Second),
		WithDrainTimeout(10*time.Second),
	)
	require.NoError(t, err)

	assert.Equal(t, 5, client.MaxReconnects())
	assert.Equal(t, time.Second, client.ReconnectWait())
	assert.Equal(t, 10*time.Second, client.PingInterval())
	assert.Equal(t, "test-client", client.clientName)
	assert.True(t, client.compression)
	assert.Equal(t, 3*time.Second, client.timeout)
	assert.Equal(t, 10*time.Second, client.drainTimeout)
}

func TestWithCredentials(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCredentials("user", "pass"))
	require.NoError(t, err)

	assert.Equal(t, "user", client.username)
	assert.Equal(t, "pass", client.password)

	// Credentials contribute a connection option
	base, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	assert.Len(t, client.ConnectionOptions(), len(base.ConnectionOptions())+1)
}

func TestWithTLS(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithTLS("cert.pem", "key.pem", "ca.pem"))
	require.NoError(t, err)

	assert.True(t, client.tlsEnabled)
	assert.Equal(t, "cert.pem", client.tlsCertFile)
	assert.Equal(t, "key.pem", client.tlsKeyFile)
	assert.Equal(t, "ca.pem", client.tlsCAFile)
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, client.logger)
}

func TestOperationsWhenNotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()

	err = client.Publish(ctx, "text.line", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.Subscribe(ctx, "text.line", func(context.Context, []byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.QueueSubscribe(ctx, "text.line", "workers", func(context.Context, []byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.Request(ctx, "pipeline.status", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.PublishToStream(ctx, "text.line", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.GetStream(ctx, "TEXT_LINES")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestJetStream_NotInitialized(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	js, err := client.JetStream()
	assert.Error(t, err)
	assert.Nil(t, js)
}

func TestGetStatus(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	client.recordFailure()

	status := client.GetStatus()
	require.NotNil(t, status)
	assert.Equal(t, StatusDisconnected, status.Status)
	assert.Equal(t, int32(1), status.FailureCount)
	assert.False(t, status.LastFailureTime.IsZero())
}

func TestWaitForConnection_Timeout(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = client.WaitForConnection(ctx)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClose_Idempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCredentials("user", "pass"))
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, client.Close(ctx))
	assert.Equal(t, StatusDisconnected, client.Status())

	// Credentials are cleared on close
	assert.Empty(t, client.username)
	assert.Empty(t, client.password)

	// Second close is a no-op
	require.NoError(t, client.Close(ctx))
}

func TestRecordFailure_Concurrent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.recordFailure()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), client.Failures())
	assert.Equal(t, StatusCircuitOpen, client.Status())
}

func TestOnHealthChange(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	called := false
	client.OnHealthChange(func(bool) { called = true })

	client.mu.RLock()
	fn := client.onHealthChange
	client.mu.RUnlock()

	require.NotNil(t, fn)
	fn(true)
	assert.True(t, called)
}

func TestConnectionStateFeedsPlatformMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	client, err := NewClient("nats://localhost:4222",
		WithName("pipeline"),
		WithMetrics(registry))
	require.NoError(t, err)
	require.NotNil(t, client.core)

	core := registry.CoreMetrics()

	client.setStatus(StatusConnected)
	assert.Equal(t, float64(1), promtestutil.ToFloat64(core.NATSConnected))
	assert.Equal(t, float64(metric.CircuitClosed), promtestutil.ToFloat64(core.NATSCircuitBreaker))

	client.setStatus(StatusCircuitOpen)
	assert.Equal(t, float64(0), promtestutil.ToFloat64(core.NATSConnected))
	assert.Equal(t, float64(metric.CircuitOpen), promtestutil.ToFloat64(core.NATSCircuitBreaker))

	client.handleReconnect(nil)
	assert.Equal(t, float64(1), promtestutil.ToFloat64(core.NATSReconnects))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(core.NATSConnected))
}

func TestHandleDeliveryRecordsPlatformMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	client, err := NewClient("nats://localhost:4222",
		WithName("pipeline"),
		WithMetrics(registry))
	require.NoError(t, err)

	var handled [][]byte
	client.handleDelivery(context.Background(), "text.line", []byte("hello"),
		func(_ context.Context, data []byte) {
			handled = append(handled, data)
		})

	require.Len(t, handled, 1)
	core := registry.CoreMetrics()
	assert.Equal(t, float64(1),
		promtestutil.ToFloat64(core.MessagesReceived.WithLabelValues("pipeline", "text.line")))
	assert.Equal(t, float64(1),
		promtestutil.ToFloat64(core.MessagesProcessed.WithLabelValues("pipeline", "text.line", "success")))
}

func TestServiceLabelDefaults(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	assert.Equal(t, "natsclient", client.serviceLabel())

	named, err := NewClient("nats://localhost:4222", WithName("pipeline"))
	require.NoError(t, err)
	assert.Equal(t, "pipeline", named.serviceLabel())
}
