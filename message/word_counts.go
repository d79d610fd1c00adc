package message

import (
	"encoding/json"
	"fmt"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/errors"
)

// WordCounts identifies the payload type carrying one batch of word counts.
var WordCounts = Type{
	Domain:   "text",
	Category: "counts",
	Version:  "v1",
}

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "text",
		Category:    "counts",
		Version:     "v1",
		Description: "Word counts aggregated over one batch window",
		Factory: func() any {
			return &WordCountsPayload{}
		},
		Example: map[string]any{
			"window_start": 1756468800000,
			"window_end":   1756468801000,
			"counts": []map[string]any{
				{"word": "spark", "count": 2},
				{"word": "apache", "count": 1},
			},
		},
	})
	if err != nil {
		panic("failed to register WordCounts payload: " + err.Error())
	}
}

// WordCount is one (word, count) pair within a batch.
type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// WordCountsPayload carries the word counts for one closed batch window.
// Counts are ordered by descending count, ties broken lexicographically
// by word, so downstream sinks can print them without re-sorting.
// WindowStart and WindowEnd are Unix milliseconds; WindowEnd is the
// batch time shown in output.
type WordCountsPayload struct {
	WindowStart int64       `json:"window_start"`
	WindowEnd   int64       `json:"window_end"`
	Counts      []WordCount `json:"counts"`
}

// NewWordCounts creates a WordCountsPayload for one window.
func NewWordCounts(windowStart, windowEnd int64, counts []WordCount) *WordCountsPayload {
	return &WordCountsPayload{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Counts:      counts,
	}
}

// Schema returns the payload type identifier, always text.counts.v1.
func (p *WordCountsPayload) Schema() Type {
	return WordCounts
}

// Validate checks the window bounds and count entries. An empty Counts
// slice is valid: it represents a window in which no lines arrived.
func (p *WordCountsPayload) Validate() error {
	if p.WindowEnd == 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "WordCountsPayload", "Validate",
			"window_end must be set")
	}
	if p.WindowStart > p.WindowEnd {
		return errors.WrapInvalid(errors.ErrInvalidData, "WordCountsPayload", "Validate",
			"window_start must not be after window_end")
	}
	for i, wc := range p.Counts {
		if wc.Word == "" {
			return errors.WrapInvalid(errors.ErrInvalidData, "WordCountsPayload", "Validate",
				fmt.Sprintf("entry %d has an empty word", i))
		}
		if wc.Count < 1 {
			return errors.WrapInvalid(errors.ErrInvalidData, "WordCountsPayload", "Validate",
				fmt.Sprintf("entry %d (%s) has count %d, want >= 1", i, wc.Word, wc.Count))
		}
	}
	return nil
}

// MarshalJSON serializes the payload.
func (p *WordCountsPayload) MarshalJSON() ([]byte, error) {
	// Use alias to avoid infinite recursion
	type Alias WordCountsPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON deserializes JSON data into the payload.
func (p *WordCountsPayload) UnmarshalJSON(data []byte) error {
	type Alias WordCountsPayload
	return json.Unmarshal(data, (*Alias)(p))
}

var _ Payload = (*WordCountsPayload)(nil)
