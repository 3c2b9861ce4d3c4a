// Package tool implements the function / tool calling subsystem that lets
// workers invoke structured capabilities (upstream APIs) with schema validated
// arguments, a consistent error taxonomy and user-safe failure messages.
package tool

import (
	"context"
	"errors"
	"fmt"
)

// Tool defines the interface for extending worker capabilities with external
// functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define proper JSON schema for parameters
//   - Classify failures with the error codes in this package
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is provided to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Invoke executes the tool with parsed arguments and returns the
	// payload to surface back to the model.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Code categorizes tool failures. The category decides both retry behavior
// and the user-safe message the failure is translated into.
type Code string

const (
	// CodeInvalidInput marks malformed or out-of-range arguments. Never
	// retried.
	CodeInvalidInput Code = "invalid_input"

	// CodeUpstreamUnavailable marks connectivity or server-side failures of
	// the upstream service. Retried.
	CodeUpstreamUnavailable Code = "upstream_unavailable"

	// CodeUpstreamTimeout marks an upstream deadline expiry. Retried.
	CodeUpstreamTimeout Code = "upstream_timeout"

	// CodeNotFound marks a well-formed query for which the upstream has no
	// answer (unknown location, unknown ticker). Never retried.
	CodeNotFound Code = "not_found"
)

// Error is the uniform failure type returned by tool adapters.
type Error struct {
	Tool    string `json:"tool"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient and worth retrying.
func (e *Error) Retryable() bool {
	return e.Code == CodeUpstreamUnavailable || e.Code == CodeUpstreamTimeout
}

// NewError creates a new Error with the specified classification.
func NewError(tool string, code Code, message string) *Error {
	return &Error{Tool: tool, Code: code, Message: message}
}

// WrapError creates an Error preserving the underlying cause.
func WrapError(tool string, code Code, message string, err error) *Error {
	return &Error{Tool: tool, Code: code, Message: message, Err: err}
}

// AsError extracts a *Error from err, wrapping unknown errors as
// upstream_unavailable so every tool failure carries a classification.
func AsError(toolName string, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return WrapError(toolName, CodeUpstreamUnavailable, err.Error(), err)
}
