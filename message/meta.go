package message

import "time"

// Meta provides metadata about a message's lifecycle and origin.
//
// Using an interface rather than a concrete type allows for custom
// metadata implementations for specific domains and easier testing.
type Meta interface {
	// CreatedAt returns when the original event occurred.
	// For a text line, this is when the source produced the line.
	CreatedAt() time.Time

	// ReceivedAt returns when the message entered the processing system.
	// This helps track ingestion latency and message age.
	ReceivedAt() time.Time

	// Source returns the identifier of the message originator.
	// Examples: "socket-input", "wordcount"
	Source() string
}
