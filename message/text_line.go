package message

import (
	"encoding/json"

	"github.com/c360/wordstream/component"
)

// TextLine identifies the payload type carrying one raw line of text.
var TextLine = Type{
	Domain:   "text",
	Category: "line",
	Version:  "v1",
}

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "text",
		Category:    "line",
		Version:     "v1",
		Description: "One raw line of text read from a streaming source",
		Factory: func() any {
			return &TextLinePayload{}
		},
		Example: map[string]any{
			"line":   "to be or not to be",
			"origin": "localhost:9999",
		},
	})
	if err != nil {
		panic("failed to register TextLine payload: " + err.Error())
	}
}

// TextLinePayload carries a single line of text from a streaming source.
// Origin names where the line came from, typically host:port of the
// socket the source is connected to.
type TextLinePayload struct {
	Line   string `json:"line"`
	Origin string `json:"origin,omitempty"`
}

// NewTextLine creates a TextLinePayload for one line.
func NewTextLine(line, origin string) *TextLinePayload {
	return &TextLinePayload{
		Line:   line,
		Origin: origin,
	}
}

// Schema returns the payload type identifier, always text.line.v1.
func (p *TextLinePayload) Schema() Type {
	return TextLine
}

// Validate accepts any line content. Empty lines are valid stream
// elements; they simply contribute no words downstream.
func (p *TextLinePayload) Validate() error {
	return nil
}

// MarshalJSON serializes the payload.
func (p *TextLinePayload) MarshalJSON() ([]byte, error) {
	// Use alias to avoid infinite recursion
	type Alias TextLinePayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON deserializes JSON data into the payload.
func (p *TextLinePayload) UnmarshalJSON(data []byte) error {
	type Alias TextLinePayload
	return json.Unmarshal(data, (*Alias)(p))
}

var _ Payload = (*TextLinePayload)(nil)
