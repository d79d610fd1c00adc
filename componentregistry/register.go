// Package componentregistry registers the built-in WordStream components.
package componentregistry

import (
	"errors"

	"github.com/c360/wordstream/component"
	pkgerrors "github.com/c360/wordstream/errors"
	"github.com/c360/wordstream/input/socket"
	"github.com/c360/wordstream/output/console"
	"github.com/c360/wordstream/output/file"
	"github.com/c360/wordstream/output/websocket"
	"github.com/c360/wordstream/processor/wordcount"
)

// Register registers all built-in components with the provided registry:
//
//   - Socket input (TCP line source)
//   - WordCount processor (windowed word counting)
//   - Console output (batch printer)
//   - File output (batch writer)
//   - WebSocket output (live dashboard broadcasting)
func Register(registry *component.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	// Inputs
	if err := socket.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "socket input component registration")
	}

	// Processors
	if err := wordcount.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "wordcount processor component registration")
	}

	// Outputs
	if err := console.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "console output component registration")
	}

	if err := file.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "file output component registration")
	}

	if err := websocket.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "WebSocket output component registration")
	}

	return nil
}
