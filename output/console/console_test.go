package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/message"
	"github.com/c360/wordstream/natsclient"
	"github.com/c360/wordstream/pkg/timestamp"
)

func newTestOutput(t *testing.T, buf *bytes.Buffer) *Output {
	t.Helper()
	out, err := NewOutputWithWriter(nil, component.Dependencies{
		NATSClient: &natsclient.Client{},
	}, buf)
	require.NoError(t, err)
	return out
}

// batchMessage builds the wire form of a word count batch.
func batchMessage(t *testing.T, windowEnd int64, counts []message.WordCount) []byte {
	t.Helper()
	payload := message.NewWordCounts(windowEnd-2000, windowEnd, counts)
	msg := message.NewBaseMessage(message.WordCounts, payload, "test")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestNewOutputDefaults(t *testing.T) {
	out := newTestOutput(t, &bytes.Buffer{})
	assert.Equal(t, []string{"text.counts"}, out.subjects)
	assert.NoError(t, out.Initialize())
}

func TestNewOutputNoSubjects(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"ports": map[string]any{
			"inputs": []map[string]any{},
		},
	})
	require.NoError(t, err)

	// An explicit empty port config short-circuits to defaults only when
	// Ports is nil, so no subjects is a config error
	_, err = NewOutputWithWriter(raw, component.Dependencies{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestInitializeNilWriter(t *testing.T) {
	out := newTestOutput(t, &bytes.Buffer{})
	out.writer = nil
	assert.Error(t, out.Initialize())
}

func TestHandleMessagePrintsBatch(t *testing.T) {
	var buf bytes.Buffer
	out := newTestOutput(t, &buf)

	windowEnd := timestamp.Now()
	out.handleMessage(context.Background(), batchMessage(t, windowEnd, []message.WordCount{
		{Word: "apache", Count: 1},
		{Word: "spark", Count: 1},
	}))

	expected := fmt.Sprintf(
		"-------------------------------------------\n"+
			"Time: %s\n"+
			"-------------------------------------------\n"+
			"(apache, 1)\n"+
			"(spark, 1)\n\n",
		timestamp.FormatBatchTime(windowEnd))
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, int64(1), out.batchesPrinted.Load())
	assert.Equal(t, int64(2), out.wordsPrinted.Load())
}

func TestHandleMessageEmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	out := newTestOutput(t, &buf)

	windowEnd := timestamp.Now()
	out.handleMessage(context.Background(), batchMessage(t, windowEnd, nil))

	got := buf.String()
	assert.Contains(t, got, "Time: "+timestamp.FormatBatchTime(windowEnd))
	// Header-only batch: no (word, count) lines
	assert.NotContains(t, got, "(")
	assert.Equal(t, 4, strings.Count(got, "\n"))
}

func TestHandleMessagePreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	out := newTestOutput(t, &buf)

	out.handleMessage(context.Background(), batchMessage(t, timestamp.Now(), []message.WordCount{
		{Word: "apache", Count: 3},
		{Word: "hadoop", Count: 2},
		{Word: "spark", Count: 2},
	}))

	got := buf.String()
	assert.Less(t, strings.Index(got, "(apache, 3)"), strings.Index(got, "(hadoop, 2)"))
	assert.Less(t, strings.Index(got, "(hadoop, 2)"), strings.Index(got, "(spark, 2)"))
}

func TestHandleMessageBadInput(t *testing.T) {
	var buf bytes.Buffer
	out := newTestOutput(t, &buf)

	out.handleMessage(context.Background(), []byte("not json"))
	assert.Equal(t, int64(1), out.errorCount.Load())

	line := message.NewTextLine("hello", "test")
	msg := message.NewBaseMessage(message.TextLine, line, "test")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	out.handleMessage(context.Background(), data)
	assert.Equal(t, int64(2), out.errorCount.Load())

	assert.Empty(t, buf.String())
}

func TestMetaAndPorts(t *testing.T) {
	out := newTestOutput(t, &bytes.Buffer{})

	meta := out.Meta()
	assert.Equal(t, "console-output", meta.Name)
	assert.Equal(t, "output", meta.Type)

	inputs := out.InputPorts()
	require.Len(t, inputs, 1)
	natsPort, ok := inputs[0].Config.(component.NATSPort)
	require.True(t, ok)
	assert.Equal(t, "text.counts", natsPort.Subject)

	assert.Empty(t, out.OutputPorts())
}

func TestHealthAndStop(t *testing.T) {
	out := newTestOutput(t, &bytes.Buffer{})

	assert.False(t, out.Health().Healthy)
	assert.NoError(t, out.Stop(time.Second))
}

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	factories := registry.ListFactories()
	require.Contains(t, factories, "console")
	assert.Equal(t, "output", factories["console"].Type)
}

func TestRestartGetsFreshLifecycleChannels(t *testing.T) {
	out := newTestOutput(t, &bytes.Buffer{})

	out.mu.Lock()
	out.running = true
	out.mu.Unlock()

	require.NoError(t, out.Stop(time.Second))
	select {
	case <-out.shutdown:
	default:
		t.Fatal("shutdown channel should be closed after Stop")
	}

	// Start fails without a NATS connection, but it must swap in fresh
	// channels first so the next Stop can close them again.
	require.Error(t, out.Start(context.Background()))
	select {
	case <-out.shutdown:
		t.Fatal("shutdown channel should be open after restart")
	default:
	}
	select {
	case <-out.done:
		t.Fatal("done channel should be open after restart")
	default:
	}
}
