package message

import "fmt"

// Keyable represents types that can be converted to semantic keys using
// dotted notation. Dotted keys line up with NATS subject hierarchies so
// the same names work for routing, wildcard queries, and storage.
type Keyable interface {
	// Key returns the dotted notation representation of this type.
	// Examples: "text.line.v1", "text.counts.v1"
	Key() string
}

// Type provides structured type information for messages.
// It enables type-safe routing and processing by clearly identifying
// the domain, category, and version of each message.
//
// Type constants should be defined in domain packages to maintain
// clear ownership. This package only provides the type definition.
//
// Example definition in a domain package:
//
//	var TextLine = message.Type{
//	    Domain:   "text",
//	    Category: "line",
//	    Version:  "v1",
//	}
type Type struct {
	// Domain identifies the business or system domain.
	// Examples: "text", "core"
	Domain string

	// Category identifies the specific message type within the domain.
	// Examples: "line", "counts", "json"
	Category string

	// Version identifies the schema version.
	// Format: "v1", "v2", etc. Enables schema evolution.
	Version string
}

// Key returns the dotted notation representation: "domain.category.version"
func (mt Type) Key() string {
	return fmt.Sprintf("%s.%s.%s", mt.Domain, mt.Category, mt.Version)
}

// String returns the same as Key()
func (mt Type) String() string {
	return mt.Key()
}

// IsValid checks if the Type has all required fields populated
func (mt Type) IsValid() bool {
	return mt.Domain != "" && mt.Category != "" && mt.Version != ""
}

// Equal compares two Type instances for equality
func (mt Type) Equal(other Type) bool {
	return mt.Domain == other.Domain &&
		mt.Category == other.Category &&
		mt.Version == other.Version
}
