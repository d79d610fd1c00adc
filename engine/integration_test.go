package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/componentregistry"
	"github.com/c360/wordstream/config"
	"github.com/c360/wordstream/natsclient"
	"github.com/c360/wordstream/testutil"
	"github.com/c360/wordstream/types"
)

// TestIntegration_PipelineEndToEnd runs the real socket input and wordcount
// processor against a containerized NATS server. The test plays the part of
// both the line source and the counts consumer.
func TestIntegration_PipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := natsclient.NewTestClient(t)
	server := testutil.NewLineServer(t)

	registry := component.NewRegistry()
	require.NoError(t, componentregistry.Register(registry))

	eng, err := New(registry, component.Dependencies{NATSClient: tc.Client}, nil)
	require.NoError(t, err)

	socketPorts, err := json.Marshal(map[string]any{
		"ports": map[string]any{
			"inputs": []map[string]any{
				{
					"name":     "tcp_source",
					"type":     "network",
					"subject":  fmt.Sprintf("tcp://%s", server.Addr()),
					"required": true,
				},
			},
			"outputs": []map[string]any{
				{
					"name":     "lines_out",
					"type":     "nats",
					"subject":  "text.line",
					"required": true,
				},
			},
		},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Initialize(config.ComponentConfigs{
		"socket-feed": {
			Type: types.ComponentTypeInput, Name: "socket", Enabled: true,
			Config: socketPorts,
		},
		"wordcount-main": {
			Type: types.ComponentTypeProcessor, Name: "wordcount", Enabled: true,
			Config: json.RawMessage(`{"batch_interval_seconds": 1}`),
		},
	}))

	// The test is the counts consumer, so subscribe before the pipeline
	// starts publishing. The handler only collects raw batches; decoding
	// happens on the test goroutine.
	var mu sync.Mutex
	var batches [][]byte
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tc.Client.Subscribe(ctx, "text.counts", func(_ context.Context, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, data)
	}))

	require.NoError(t, eng.Start(ctx))
	defer func() { _ = eng.Stop(5 * time.Second) }()

	assert.True(t, eng.SystemHealth().Healthy)

	server.WaitForClient(t, 5*time.Second)
	for _, line := range testutil.TestLines {
		require.NoError(t, server.SendLine(line))
	}

	expected, err := testutil.MergedCounts(len(testutil.TestLines))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		snapshot := make([][]byte, len(batches))
		copy(snapshot, batches)
		mu.Unlock()

		received := make(map[string]int64)
		for _, batch := range snapshot {
			for word, count := range testutil.DecodeCounts(t, batch) {
				received[word] += count
			}
		}
		for word, count := range expected {
			if received[word] != count {
				return false
			}
		}
		return true
	}, 10*time.Second, 100*time.Millisecond, "windowed counts never matched the corpus")

	require.NoError(t, eng.Stop(5*time.Second))
	assert.False(t, eng.Running())
}
