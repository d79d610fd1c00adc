package message

import (
	"encoding/json"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/errors"
)

// init registers the GenericJSON payload type with the global
// PayloadRegistry so BaseMessage.UnmarshalJSON can recreate payloads
// for the well-known type "core.json.v1".
func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "core",
		Category:    "json",
		Version:     "v1",
		Description: "Generic JSON payload for testing, prototyping, and basic data processing",
		Factory: func() any {
			return &GenericJSONPayload{}
		},
		Example: map[string]any{
			"data": map[string]any{
				"line": "hello streaming world",
			},
		},
	})
	if err != nil {
		panic("failed to register GenericJSON payload: " + err.Error())
	}
}

// GenericJSONPayload provides a simple, explicitly flexible payload type
// for testing, prototyping, and basic data processing flows.
//
// This is an intentional, well-known type (core.json.v1) designed for:
//   - Rapid prototyping of flows
//   - Integration testing
//   - Basic JSON data processing
//
// Components that work with GenericJSON explicitly declare they require
// "core.json.v1", providing type safety while keeping the structure
// flexible.
type GenericJSONPayload struct {
	// Data contains the JSON payload as a map, supporting arbitrary
	// JSON structures.
	Data map[string]any `json:"data"`
}

// NewGenericJSON creates a new GenericJSON payload with the given data.
func NewGenericJSON(data map[string]any) *GenericJSONPayload {
	return &GenericJSONPayload{
		Data: data,
	}
}

// Schema returns the payload type identifier, always core.json.v1.
func (g *GenericJSONPayload) Schema() Type {
	return Type{
		Domain:   "core",
		Category: "json",
		Version:  "v1",
	}
}

// Validate ensures the data map is not nil.
func (g *GenericJSONPayload) Validate() error {
	if g.Data == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "GenericJSONPayload", "Validate", "data cannot be nil")
	}
	return nil
}

// MarshalJSON serializes the GenericJSON payload.
func (g *GenericJSONPayload) MarshalJSON() ([]byte, error) {
	// Use alias to avoid infinite recursion
	type Alias GenericJSONPayload
	return json.Marshal((*Alias)(g))
}

// UnmarshalJSON deserializes JSON data into the GenericJSON payload.
func (g *GenericJSONPayload) UnmarshalJSON(data []byte) error {
	type Alias GenericJSONPayload
	return json.Unmarshal(data, (*Alias)(g))
}
