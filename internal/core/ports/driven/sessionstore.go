package driven

import "github.com/custodia-labs/sercha-study/internal/core/domain"

// SessionStore keeps study sessions in memory with bounded capacity.
type SessionStore interface {
	// Create starts a new empty session.
	Create() *domain.Session

	// Get returns a copy of the session and marks it recently used.
	// Returns domain.ErrNotFound if the session was evicted or never existed.
	Get(id string) (*domain.Session, error)

	// Append adds messages to a session and records the document used.
	Append(id, docID string, msgs ...domain.Message) error

	// Clear removes the session's messages but keeps the session.
	Clear(id string) error

	// Delete removes a session. Returns domain.ErrNotFound if absent.
	Delete(id string) error

	// List returns all live sessions.
	List() []domain.Session
}
