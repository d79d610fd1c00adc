package testutil

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/c360/wordstream/message"
	"github.com/c360/wordstream/pkg/timestamp"
)

// TestLines is a small corpus of input lines with known word frequencies.
var TestLines = []string{
	"to be or not to be",
	"the quick brown fox jumps over the lazy dog",
	"apache spark apache flink apache beam",
	"hello world",
}

// TestLineCounts maps each line in TestLines to its expected word counts.
var TestLineCounts = []map[string]int64{
	{"to": 2, "be": 2, "or": 1, "not": 1},
	{"the": 2, "quick": 1, "brown": 1, "fox": 1, "jumps": 1, "over": 1, "lazy": 1, "dog": 1},
	{"apache": 3, "spark": 1, "flink": 1, "beam": 1},
	{"hello": 1, "world": 1},
}

// LineMessage builds a wire-encoded text.line message the way the socket
// input publishes them.
func LineMessage(t *testing.T, line, origin string) []byte {
	t.Helper()

	msg := message.NewBaseMessage(message.TextLine, message.NewTextLine(line, origin), "testutil")
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal line message: %v", err)
	}
	return data
}

// CountsMessage builds a wire-encoded text.counts message covering a window
// that ends now.
func CountsMessage(t *testing.T, window map[string]int64) []byte {
	t.Helper()

	counts := make([]message.WordCount, 0, len(window))
	for word, count := range window {
		counts = append(counts, message.WordCount{Word: word, Count: count})
	}

	end := timestamp.Now()
	payload := message.NewWordCounts(end-2000, end, counts)
	msg := message.NewBaseMessage(message.WordCounts, payload, "testutil")
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal counts message: %v", err)
	}
	return data
}

// DecodeCounts unpacks a wire-encoded text.counts message into a word to
// count map.
func DecodeCounts(t *testing.T, data []byte) map[string]int64 {
	t.Helper()

	var msg message.BaseMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal counts message: %v", err)
	}
	payload, ok := msg.Payload().(*message.WordCountsPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload())
	}

	counts := make(map[string]int64, len(payload.Counts))
	for _, wc := range payload.Counts {
		counts[wc.Word] = wc.Count
	}
	return counts
}

// MergedCounts folds the expected per-line counts for lines[0:n] into one
// window total, mirroring what the counter produces for a batch that saw
// all of them.
func MergedCounts(n int) (map[string]int64, error) {
	if n > len(TestLineCounts) {
		return nil, fmt.Errorf("only %d test lines available", len(TestLineCounts))
	}

	merged := make(map[string]int64)
	for _, counts := range TestLineCounts[:n] {
		for word, count := range counts {
			merged[word] += count
		}
	}
	return merged, nil
}
