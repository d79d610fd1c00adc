// Package buffer provides a generic, thread-safe ring buffer with configurable
// overflow policies.
//
// # Overview
//
// The ring buffer decouples producers from consumers inside streaming
// components: a network reader writes items as they arrive while a batch loop
// drains them on its own schedule.
//
// # Overflow Policies
//
//   - DropOldest: evict the oldest item to make room (default)
//   - DropNewest: discard the incoming item
//   - Block: Write blocks until a reader frees space
//
// # Usage
//
//	buf, err := buffer.NewRingBuffer[[]byte](1000,
//	    buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
//	    buffer.WithMetrics[[]byte](registry, "socket-input"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer buf.Close()
//
//	_ = buf.Write(line)
//	batch := buf.ReadBatch(100)
//
// # Observability
//
// Statistics (writes, reads, overflows, drops, size high-water mark) are
// always collected and available via Stats(). Prometheus export is opt-in
// through WithMetrics.
//
// All operations are safe for concurrent use.
package buffer
