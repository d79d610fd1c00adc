package message

import "encoding/json"

// Payload represents the data carried by a message.
// All message payloads must implement this interface to provide
// schema information, validation, and serialization capabilities.
//
// Example implementation:
//
//	type LinePayload struct {
//	    Line string `json:"line"`
//	}
//
//	func (p *LinePayload) Schema() Type {
//	    return Type{Domain: "text", Category: "line", Version: "v1"}
//	}
//
//	func (p *LinePayload) Validate() error {
//	    return nil
//	}
//
//	func (p *LinePayload) MarshalJSON() ([]byte, error) {
//	    // Use alias to avoid infinite recursion
//	    type Alias LinePayload
//	    return json.Marshal((*Alias)(p))
//	}
//
//	func (p *LinePayload) UnmarshalJSON(data []byte) error {
//	    type Alias LinePayload
//	    return json.Unmarshal(data, (*Alias)(p))
//	}
type Payload interface {
	// Schema returns the Type that defines this payload's structure.
	Schema() Type

	// Validate checks the payload data for correctness.
	// Returns nil if valid, or an error describing the validation failure.
	Validate() error

	// JSON serialization using standard Go interfaces. The same payload
	// must always produce the same JSON output.
	json.Marshaler
	json.Unmarshaler
}
