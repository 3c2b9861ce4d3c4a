package core

import (
	"sync"
	"time"
)

// Session represents a conversation session holding the ordered event history
// for one user conversation. All methods are safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Events    []Event   `json:"events"`
}

// NewSession creates an empty session with the given identifier.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddEvent appends an event to the session history.
func (s *Session) AddEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Events = append(s.Events, e)
	s.UpdatedAt = time.Now().UTC()
}

// GetEvents returns a copy of the session's event history.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]Event, len(s.Events))
	copy(events, s.Events)

	return events
}

// EventCount returns the number of events recorded so far.
func (s *Session) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.Events)
}

// GetConversationHistory returns the user and assistant contents suitable for
// prompting a model: partial fragments, control events and error events are
// filtered out.
func (s *Session) GetConversationHistory() []Content {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var history []Content
	for _, e := range s.Events {
		if e.Content == nil || e.IsPartial() || e.IsError() {
			continue
		}
		if e.Content.Role != "user" && e.Content.Role != "assistant" {
			continue
		}
		history = append(history, *e.Content)
	}

	return history
}

// Clone returns a deep-enough copy of the session for safe handoff across
// goroutine boundaries. Events themselves are treated as immutable.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Events:    make([]Event, len(s.Events)),
	}
	copy(clone.Events, s.Events)

	return clone
}
