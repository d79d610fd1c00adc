// Package message defines the message envelope and payload types that
// flow between pipeline components.
//
// A Message pairs a structured Type (domain.category.version) with a
// typed Payload and lifecycle Meta. BaseMessage is the standard
// implementation: immutable after construction, identified by a UUID,
// and serializable to a stable JSON wire format with millisecond
// timestamps.
//
//	payload := message.NewTextLine("to be or not to be", "localhost:9999")
//	msg := message.NewBaseMessage(message.TextLine, payload, "socket-input")
//
//	data, _ := json.Marshal(msg)
//
// Deserialization recreates the typed payload through the global payload
// registry, so every payload type registers itself in an init function.
// The registered types are:
//
//	text.line.v1    TextLinePayload    one raw line from a source
//	text.counts.v1  WordCountsPayload  word counts for one batch window
//	core.json.v1    GenericJSONPayload arbitrary JSON for prototyping
//
// Unknown types fail to unmarshal rather than silently degrading to
// untyped maps; use core.json.v1 when the structure is intentionally
// open.
package message
