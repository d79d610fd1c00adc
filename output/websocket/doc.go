// Package websocket implements a WebSocket server output for live word
// count dashboards.
//
// The component subscribes to one or more NATS subjects carrying word
// count batches and broadcasts each batch as a JSON frame to every
// connected WebSocket client:
//
//	{
//	  "type": "counts",
//	  "subject": "text.counts",
//	  "timestamp": 1767225602000,
//	  "window_start": 1767225600000,
//	  "window_end": 1767225602000,
//	  "counts": [{"word": "apache", "count": 2}, {"word": "spark", "count": 1}]
//	}
//
// # Quick start
//
//	out, err := websocket.NewOutput(nil, component.Dependencies{
//		NATSClient: natsClient,
//	})
//	if err != nil {
//		return err
//	}
//	if err := out.Initialize(); err != nil {
//		return err
//	}
//	if err := out.Start(ctx); err != nil {
//		return err
//	}
//	defer out.Stop(5 * time.Second)
//
// Clients connect to ws://host:8081/ws by default. The port, path and
// input subjects are configurable through the component config.
//
// # Delivery semantics
//
// Delivery is at-most-once. A frame is written once to each client that
// is connected at broadcast time; a client whose write fails or times
// out is dropped immediately and never retried. Clients are expected to
// treat every batch as a full replacement of the previous one, so a
// missed frame heals on the next batch.
//
// Connection health is maintained with WebSocket pings on a fixed
// interval. Clients that stop answering pongs exceed their read
// deadline and are dropped.
//
// # TLS
//
// The server supports manual certificates, mutual TLS and ACME issued
// certificates through the tls config block. With ACME enabled the
// certificate is obtained on Start and renewed in the background until
// Stop.
package websocket
