// Package component provides the core component infrastructure for
// wordstream: discovery, registration, configuration schemas, and
// lifecycle management.
//
// # Overview
//
// Three component types make up a pipeline: inputs (data sources such
// as the socket reader), processors (transformers such as the word
// counter), and outputs (sinks such as the console printer). Components
// are self-describing units discovered at runtime through the
// Discoverable interface and managed through LifecycleComponent.
//
// The Registry is the central management point, handling factory
// registration, instance tracking, and exclusive resource claims (a
// listen address or stream name can only be owned by one component).
//
// # Registration Pattern
//
// Registration is explicit rather than init()-driven, so tests can
// build isolated registries and main controls what is available:
//
//	// In input/socket/socket.go
//	func Register(registry *component.Registry) error {
//		return registry.RegisterWithConfig(component.RegistrationConfig{
//			Name:        "socket",
//			Factory:     CreateSocketInput,
//			Schema:      socketSchema,
//			Type:        "input",
//			Protocol:    "tcp",
//			Domain:      "text",
//			Description: "TCP socket text line input",
//			Version:     "1.0.0",
//		})
//	}
//
//	// In componentregistry/register.go
//	func RegisterAll(registry *component.Registry) error {
//		if err := socket.Register(registry); err != nil {
//			return err
//		}
//		// ... more registrations
//		return nil
//	}
//
// Payload types are the exception: they register globally via
// RegisterPayload because they are data types, not lifecycle components.
//
// # Configuration Schemas
//
// Config structs carry schema tags that GenerateConfigSchema turns into
// a ConfigSchema via one-time reflection at init. SafeUnmarshal
// validates raw JSON (size, depth, content) before unmarshaling it into
// a config struct and running its Validate method.
//
// # Ports
//
// Ports declare how a component connects to the world: NATSPort for
// pub/sub subjects, NATSRequestPort for request/reply, JetStreamPort
// for durable streams, and NetworkPort for TCP/UDP endpoints. Exclusive
// ports (network listeners, stream owners) are conflict-checked at
// instance registration.
package component
