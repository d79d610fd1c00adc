// Package natsclient provides a resilient NATS client used by every
// pipeline component for core messaging and JetStream persistence.
//
// The client wraps nats.go with a circuit breaker: after a threshold of
// consecutive failures it opens and rejects operations immediately with
// ErrCircuitOpen, retrying the connection after an exponentially growing
// backoff. A single success closes the circuit and resets the backoff.
//
// Basic usage:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("wordstream"),
//		natsclient.WithCircuitBreakerThreshold(5),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Publish(ctx, "text.line", data)
//
// JetStream operations (CreateStream, PublishToStream, ConsumeStream,
// GetStream) go through the same circuit breaker and, when a metrics
// registry is supplied via WithMetrics, report stream and consumer
// statistics to Prometheus under the wordstream_jetstream namespace.
//
// For tests, NewTestClient starts a NATS server in a container and
// returns a connected client that is cleaned up with the test:
//
//	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
//	tc.Client.Publish(ctx, "text.line", []byte("hello"))
package natsclient
