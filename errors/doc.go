// Package errors provides standardized error handling patterns for WordStream components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// stream processing: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// Classification lets components make retry and shutdown decisions without
// hardcoded error string matching, while remaining fully compatible with
// errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	if !serviceAvailable {
//	    return errors.ErrConnectionTimeout
//	}
//
// Wrap errors with component context:
//
//	if err := component.Process(data); err != nil {
//	    return errors.Wrap(err, "wordCounter", "Process", "tokenize line")
//	}
//
// Check classification for retry logic:
//
//	if err := operation(); err != nil {
//	    if errors.IsTransient(err) {
//	        config := errors.DefaultRetryConfig()
//	        if config.ShouldRetry(err, attempt) {
//	            time.Sleep(config.BackoffDelay(attempt))
//	            // retry operation
//	        }
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification.
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified
// as Transient, so context-based timeouts are handled the same way as network
// timeouts.
//
// # Retry Integration
//
// RetryConfig bridges into the pkg/retry framework:
//
//	retryConfig := errorConfig.ToRetryConfig()
//	err := retry.Do(ctx, retryConfig, operation)
//
// All classification and wrapping operations are thread-safe.
package errors
