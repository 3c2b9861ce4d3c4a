package middleware

import "context"

// The raw user message of the current turn travels through the context so
// interceptors deep in the worker path can reference it without widening
// every request type.
type userMessageKey struct{}

// WithUserMessage stores the turn's raw user message in the context.
func WithUserMessage(ctx context.Context, message string) context.Context {
	return context.WithValue(ctx, userMessageKey{}, message)
}

// UserMessageFrom returns the turn's raw user message, or "" when unset.
func UserMessageFrom(ctx context.Context) string {
	s, _ := ctx.Value(userMessageKey{}).(string)
	return s
}
