package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by stores when no session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// ErrStoreNotReady is returned when a store is used before Initialize
// succeeded.
var ErrStoreNotReady = errors.New("session store not initialized")

// ErrInvalidSessionID is returned when a session identifier is not a
// well-formed UUID.
var ErrInvalidSessionID = errors.New("invalid session id")

// SessionStore persists conversation sessions. Implementations must be safe
// for concurrent use.
//
// Initialize must be called once before any other method; it is idempotent.
// A failed Initialize leaves the store unusable and the caller is expected to
// treat it as fatal at startup.
type SessionStore interface {
	// Initialize prepares the backing storage (connectivity checks, schema).
	Initialize(ctx context.Context) error

	// Get returns the session for id, creating an empty one if none exists.
	Get(ctx context.Context, id string) (*Session, error)

	// AppendEvent durably records an event on the session.
	AppendEvent(ctx context.Context, id string, e Event) error

	// IsOpening reports whether the session has no recorded events yet, i.e.
	// the next user message would open the conversation.
	IsOpening(ctx context.Context, id string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// ValidateSessionID checks that an externally supplied session identifier is
// a well-formed UUID. Invalid ids are rejected before any storage access.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSessionID, id, err)
	}

	return nil
}
