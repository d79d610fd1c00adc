package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
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

func newTestOutput(t *testing.T, overrides map[string]any) *Output {
	t.Helper()

	cfg := map[string]any{
		"directory":   t.TempDir(),
		"buffer_size": 1,
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	comp, err := NewOutput(raw, component.Dependencies{
		NATSClient: &natsclient.Client{},
	})
	require.NoError(t, err)

	out := comp.(*Output)
	require.NoError(t, out.Initialize())
	return out
}

// openFile opens the output file handle directly so tests can exercise
// handleMessage and flush without a NATS subscription.
func openFile(t *testing.T, out *Output) {
	t.Helper()
	file, err := os.OpenFile(out.Filename(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	out.fileMu.Lock()
	out.file = file
	out.fileMu.Unlock()
	t.Cleanup(func() {
		out.fileMu.Lock()
		if out.file != nil {
			out.file.Close()
			out.file = nil
		}
		out.fileMu.Unlock()
	})
}

func readOutput(t *testing.T, out *Output) string {
	t.Helper()
	data, err := os.ReadFile(out.Filename())
	require.NoError(t, err)
	return string(data)
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
	out := newTestOutput(t, nil)
	assert.Equal(t, []string{"text.counts"}, out.subjects)
	assert.Equal(t, "jsonl", out.format)
	assert.True(t, out.append)
	assert.True(t, strings.HasSuffix(out.Filename(), "counts.jsonl"))
}

func TestNewOutputInvalidFormat(t *testing.T) {
	raw, err := json.Marshal(map[string]any{"format": "xml"})
	require.NoError(t, err)

	_, err = NewOutput(raw, component.Dependencies{})
	assert.Error(t, err)
}

func TestNewOutputNoSubjects(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"ports": map[string]any{
			"inputs": []map[string]any{},
		},
	})
	require.NoError(t, err)

	_, err = NewOutput(raw, component.Dependencies{})
	assert.Error(t, err)
}

func TestTextFilenameExtension(t *testing.T) {
	out := newTestOutput(t, map[string]any{"format": "text"})
	assert.True(t, strings.HasSuffix(out.Filename(), "counts.txt"))
}

func TestHandleMessageWritesJSONL(t *testing.T) {
	out := newTestOutput(t, nil)
	openFile(t, out)

	windowEnd := timestamp.Now()
	out.handleMessage(context.Background(), batchMessage(t, windowEnd, []message.WordCount{
		{Word: "apache", Count: 2},
		{Word: "spark", Count: 1},
	}))

	lines := strings.Split(strings.TrimSuffix(readOutput(t, out), "\n"), "\n")
	require.Len(t, lines, 1)

	var got message.WordCountsPayload
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, windowEnd, got.WindowEnd)
	require.Len(t, got.Counts, 2)
	assert.Equal(t, "apache", got.Counts[0].Word)
	assert.Equal(t, int64(2), got.Counts[0].Count)

	assert.Equal(t, int64(1), out.batchesWritten.Load())
}

func TestHandleMessageWritesText(t *testing.T) {
	out := newTestOutput(t, map[string]any{"format": "text"})
	openFile(t, out)

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
	assert.Equal(t, expected, readOutput(t, out))
}

func TestHandleMessageBuffersUntilThreshold(t *testing.T) {
	out := newTestOutput(t, map[string]any{"buffer_size": 3})
	openFile(t, out)

	for i := 0; i < 2; i++ {
		out.handleMessage(context.Background(), batchMessage(t, timestamp.Now(), []message.WordCount{
			{Word: "hello", Count: 1},
		}))
	}
	assert.Empty(t, readOutput(t, out))

	out.handleMessage(context.Background(), batchMessage(t, timestamp.Now(), []message.WordCount{
		{Word: "hello", Count: 1},
	}))
	lines := strings.Split(strings.TrimSuffix(readOutput(t, out), "\n"), "\n")
	assert.Len(t, lines, 3)
}

func TestFlushWithoutFileCountsErrors(t *testing.T) {
	out := newTestOutput(t, nil)

	out.handleMessage(context.Background(), batchMessage(t, timestamp.Now(), []message.WordCount{
		{Word: "hello", Count: 1},
	}))
	assert.Equal(t, int64(1), out.errorCount.Load())
}

func TestHandleMessageBadInput(t *testing.T) {
	out := newTestOutput(t, nil)
	openFile(t, out)

	out.handleMessage(context.Background(), []byte("not json"))
	assert.Equal(t, int64(1), out.errorCount.Load())

	line := message.NewTextLine("hello", "test")
	msg := message.NewBaseMessage(message.TextLine, line, "test")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	out.handleMessage(context.Background(), data)
	assert.Equal(t, int64(2), out.errorCount.Load())

	assert.Empty(t, readOutput(t, out))
}

func TestMetaAndPorts(t *testing.T) {
	out := newTestOutput(t, nil)

	meta := out.Meta()
	assert.Equal(t, "file-output", meta.Name)
	assert.Equal(t, "output", meta.Type)

	inputs := out.InputPorts()
	require.Len(t, inputs, 1)
	natsPort, ok := inputs[0].Config.(component.NATSPort)
	require.True(t, ok)
	assert.Equal(t, "text.counts", natsPort.Subject)

	assert.Empty(t, out.OutputPorts())
}

func TestStopFlushesAndCloses(t *testing.T) {
	out := newTestOutput(t, map[string]any{"buffer_size": 10})
	openFile(t, out)

	// Simulate a started output so Stop runs the full shutdown path.
	out.wg.Add(1)
	go out.flushLoop()
	out.mu.Lock()
	out.running = true
	out.mu.Unlock()

	out.handleMessage(context.Background(), batchMessage(t, timestamp.Now(), []message.WordCount{
		{Word: "goodbye", Count: 1},
	}))

	require.NoError(t, out.Stop(time.Second))
	assert.NotEmpty(t, readOutput(t, out))
	assert.False(t, out.Health().Healthy)

	// Stop again is a no-op
	assert.NoError(t, out.Stop(time.Second))
}

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	factories := registry.ListFactories()
	require.Contains(t, factories, "file")
	assert.Equal(t, "output", factories["file"].Type)
}

func TestRestartGetsFreshLifecycleChannels(t *testing.T) {
	out := newTestOutput(t, nil)

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
	// channels first so a restarted flush loop does not exit at once.
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
