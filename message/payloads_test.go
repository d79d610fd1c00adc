package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/wordstream/component"
)

func TestType_Key(t *testing.T) {
	assert.Equal(t, "text.line.v1", TextLine.Key())
	assert.Equal(t, "text.counts.v1", WordCounts.Key())
	assert.Equal(t, TextLine.Key(), TextLine.String())
}

func TestType_IsValid(t *testing.T) {
	assert.True(t, TextLine.IsValid())
	assert.False(t, Type{}.IsValid())
	assert.False(t, Type{Domain: "text", Category: "line"}.IsValid())
}

func TestType_Equal(t *testing.T) {
	assert.True(t, TextLine.Equal(Type{Domain: "text", Category: "line", Version: "v1"}))
	assert.False(t, TextLine.Equal(WordCounts))
}

func TestTextLinePayload(t *testing.T) {
	payload := NewTextLine("hello streaming world", "localhost:9999")

	assert.True(t, payload.Schema().Equal(TextLine))
	assert.NoError(t, payload.Validate())

	// Empty lines are valid stream elements
	assert.NoError(t, NewTextLine("", "localhost:9999").Validate())

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var restored TextLinePayload
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, payload.Line, restored.Line)
	assert.Equal(t, payload.Origin, restored.Origin)
}

func TestWordCountsPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload *WordCountsPayload
		wantErr bool
	}{
		{
			name: "valid",
			payload: NewWordCounts(1000, 2000, []WordCount{
				{Word: "spark", Count: 2},
				{Word: "apache", Count: 1},
			}),
		},
		{
			name:    "empty window is valid",
			payload: NewWordCounts(1000, 2000, nil),
		},
		{
			name:    "missing window end",
			payload: NewWordCounts(1000, 0, nil),
			wantErr: true,
		},
		{
			name:    "window start after end",
			payload: NewWordCounts(3000, 2000, nil),
			wantErr: true,
		},
		{
			name: "empty word",
			payload: NewWordCounts(1000, 2000, []WordCount{
				{Word: "", Count: 1},
			}),
			wantErr: true,
		},
		{
			name: "zero count",
			payload: NewWordCounts(1000, 2000, []WordCount{
				{Word: "spark", Count: 0},
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWordCountsPayload_JSONRoundTrip(t *testing.T) {
	payload := NewWordCounts(1000, 2000, []WordCount{
		{Word: "spark", Count: 2},
		{Word: "apache", Count: 1},
	})

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var restored WordCountsPayload
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, payload.WindowStart, restored.WindowStart)
	assert.Equal(t, payload.WindowEnd, restored.WindowEnd)
	require.Len(t, restored.Counts, 2)
	assert.Equal(t, WordCount{Word: "spark", Count: 2}, restored.Counts[0])
}

func TestGenericJSONPayload(t *testing.T) {
	payload := NewGenericJSON(map[string]any{"line": "hello"})

	assert.Equal(t, "core.json.v1", payload.Schema().Key())
	assert.NoError(t, payload.Validate())
	assert.Error(t, (&GenericJSONPayload{}).Validate())

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var restored GenericJSONPayload
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "hello", restored.Data["line"])
}

func TestPayloadsRegisteredGlobally(t *testing.T) {
	// BaseMessage round trips depend on the init registrations
	for _, msgType := range []Type{TextLine, WordCounts, {Domain: "core", Category: "json", Version: "v1"}} {
		payload := component.CreatePayload(msgType.Domain, msgType.Category, msgType.Version)
		assert.NotNil(t, payload, "payload type %s should be registered", msgType.Key())
	}
}
