package tool

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 500 * time.Millisecond
	backoffMultiplier   = 2
)

// Invoker is the function shape retried by WithRetry.
type Invoker func(ctx context.Context) (string, error)

// WithRetry invokes fn up to maxAttempts times, backing off exponentially
// between attempts. Only failures classified as retryable (transient upstream
// conditions) are retried; invalid_input and not_found fail immediately.
// Context cancellation aborts the remaining attempts.
func WithRetry(ctx context.Context, toolName string, maxAttempts int, fn Invoker) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	delay := defaultInitialDelay

	var lastErr *Error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = AsError(toolName, err)
		if !lastErr.Retryable() || attempt == maxAttempts {
			return "", lastErr
		}

		select {
		case <-ctx.Done():
			return "", WrapError(toolName, CodeUpstreamTimeout, "cancelled while retrying", ctx.Err())
		case <-time.After(delay):
		}
		delay *= backoffMultiplier
	}

	return "", lastErr
}
