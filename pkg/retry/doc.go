// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, designed to
// handle transient failures in network operations, resource initialization, and
// component startup.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (component startup)
//   - Persistent(): 30 attempts, 200ms-10s delay (critical resources)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Reconnecting a socket source with persistent retries:
//
//	conn, err := retry.DoWithResult(ctx, retry.Persistent(), func() (net.Conn, error) {
//	    return dialer.DialContext(ctx, "tcp", addr)
//	})
//
// Marking an error so it stops the retry loop immediately:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    if badConfig {
//	        return retry.NonRetryable(errInvalidAddress)
//	    }
//	    return dial()
//	})
//
// # Context Cancellation
//
// All retry operations respect context cancellation and stop immediately when the
// context is cancelled, either during operation execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a thread-safe
// random source to avoid contention.
package retry
