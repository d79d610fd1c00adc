// Package wordstream is a micro-batch word counting pipeline over NATS.
//
// A socket input dials a TCP line server, a wordcount processor splits the
// lines into words and counts them in fixed windows, and outputs render each
// window as a batch. The pieces are independent components that communicate
// only through NATS subjects, so any stage can be swapped or fanned out
// without touching the others.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│             Engine                  │  Component lifecycle
//	│  (initialize, wire, start, stop)    │  State management
//	└─────────────────────────────────────┘
//	           ↓ orchestrates
//	┌─────────────────────────────────────┐
//	│          Components                 │  Inputs, Processors,
//	│    (input, processor, output)       │  Outputs
//	└─────────────────────────────────────┘
//	           ↓ communicate via
//	┌─────────────────────────────────────┐
//	│         NATS Messaging              │  text.line,
//	│          (pub/sub)                  │  text.counts
//	└─────────────────────────────────────┘
//
// The standard pipeline:
//
//	┌────────┐             ┌───────────┐              ┌─────────┐
//	│ Socket │             │ WordCount │              │ Console │
//	│ Input  ├─ text.line ─► Processor ├─ text.counts ─► Output │
//	└────────┘             └───────────┘              └─────────┘
//	 tcp :9999              2s windows                 stdout
//
// Multiple outputs can subscribe to text.counts at once. The example config
// ships with file and websocket outputs alongside the console, each running
// independently so a failure in one does not affect the others.
//
// # Packages
//
// Pipeline:
//   - engine: component orchestration, wiring validation, lifecycle
//   - component: component interfaces, registry, port definitions
//   - component/flowgraph: subject-based connectivity analysis
//   - componentregistry: registration of the built-in components
//   - config: layered configuration loading and validation
//
// Components:
//   - input/socket: TCP line source
//   - processor/wordcount: windowed word counting
//   - output/console: batch printer
//   - output/file: batch writer (JSON Lines or text)
//   - output/websocket: live batch broadcasting
//
// Infrastructure:
//   - natsclient: NATS connection management
//   - message: envelope and payload types on the wire
//   - metric: Prometheus metrics and the metrics HTTP server
//   - health: component health aggregation
//   - errors: structured error handling with severity
//
// Utilities:
//   - pkg/buffer: ring buffer for streaming
//   - pkg/retry: retry policies
//   - pkg/timestamp: millisecond timestamps and batch time formatting
//   - pkg/security, pkg/tlsutil, pkg/acme: TLS for the exposed HTTP surfaces
//
// # Usage
//
// Run the pipeline against a local NATS server:
//
//	# Feed lines on :9999 (stdin or a replayed file)
//	go run ./cmd/linefeed --addr :9999
//
//	# Start the pipeline
//	go run ./cmd/wordstream --config configs/wordcount.json
//
// Embedding the engine directly:
//
//	registry := component.NewRegistry()
//	componentregistry.Register(registry)
//
//	eng, _ := engine.New(registry, deps, metricsRegistry)
//	eng.Initialize(cfg.Components)
//	eng.Run(ctx, 0)
//
// Custom components register the same way the built-ins do:
//
//	func Register(registry *component.Registry) error {
//	    return registry.RegisterWithConfig(component.RegistrationConfig{
//	        Name:        "kafka",
//	        Factory:     NewOutput,
//	        Schema:      kafkaSchema,
//	        Type:        "output",
//	        Protocol:    "kafka",
//	        Domain:      "text",
//	        Description: "Kafka output for word count batches",
//	        Version:     "1.0.0",
//	    })
//	}
package wordstream
