// Package socket provides a TCP client input component that reads
// newline-delimited text from a line server and publishes each line to NATS.
//
// # Overview
//
// The socket input is the entry point of the word-count pipeline. It dials a
// plain-text line server (for example `nc -lk 9999` or the cmd/linefeed
// binary), scans the connection line by line, and publishes each line as a
// TextLinePayload message on the configured subject. The connection is
// re-established with backoff whenever the server closes it or a read fails,
// so a restarted server picks back up without operator intervention.
//
// # Quick Start
//
//	cfg := socket.DefaultConfig() // reads tcp://localhost:9999, publishes to text.line
//	input := socket.NewInput(socket.InputDeps{
//	    Config:     cfg,
//	    NATSClient: client,
//	    Logger:     logger,
//	})
//	if err := input.Initialize(); err != nil { ... }
//	if err := input.Start(ctx); err != nil { ... }
//	defer input.Stop(5 * time.Second)
//
// # Configuration
//
//   - ports.inputs[network]: the source address as "tcp://host:port"
//   - ports.outputs[nats]: the subject for published lines (default "text.line")
//   - ports.outputs[jetstream]: alternatively a durable stream; the component
//     creates the stream on start and publishes with at-least-once semantics
//   - max_line_bytes: scanner cap; oversized lines abort the read and trigger
//     a reconnect (default 1 MiB)
//   - rate_limit: maximum published lines per second, 0 = unlimited
//   - tls_enabled / tls: dial the source over TLS
//
// # Delivery Semantics
//
// With a plain NATS output delivery is at-most-once: lines read while NATS
// is unreachable are retried briefly and then dropped, and lines arriving
// while the source is disconnected are never seen. Configuring the
// JetStream output hardens the publish side only.
package socket
