package stream

import "fmt"

// TransportKind classifies client-side transport failures.
type TransportKind string

const (
	// TransportNetwork is a connection or read failure. Retryable.
	TransportNetwork TransportKind = "network"

	// TransportTimeout is a deadline expiry. Retryable.
	TransportTimeout TransportKind = "timeout"

	// TransportServer is a 5xx response. Retryable.
	TransportServer TransportKind = "server"

	// TransportAuth is a 401/403 response. Terminal.
	TransportAuth TransportKind = "auth"

	// TransportRateLimited is a 429 response. Terminal.
	TransportRateLimited TransportKind = "rate_limited"
)

// User-safe messages surfaced when the client gives up.
const (
	msgUnauthorized = "Unable to connect to the service. Please contact support."
	msgRateLimited  = "Please wait a moment before sending another message."
	msgServerError  = "Something went wrong. Please try again."
	msgTimeout      = "Request timed out. Please try again."
	msgNetwork      = "Connecting to service..."
)

// TransportError is a classified client-side failure.
type TransportError struct {
	Kind       TransportKind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error [%s]: status %d", e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport error [%s]: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transport error [%s]", e.Kind)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Auth and rate-limit
// failures short-circuit retries.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case TransportNetwork, TransportTimeout, TransportServer:
		return true
	default:
		return false
	}
}

// UserMessage renders the user-safe message for this failure.
func (e *TransportError) UserMessage() string {
	switch e.Kind {
	case TransportAuth:
		return msgUnauthorized
	case TransportRateLimited:
		return msgRateLimited
	case TransportTimeout:
		return msgTimeout
	case TransportNetwork:
		return msgNetwork
	default:
		return msgServerError
	}
}
