package driving

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// StudyService answers study requests grounded in a document.
type StudyService interface {
	// Ask runs one request through retrieval, prompting and generation.
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)

	// Modes lists the supported study modes.
	Modes() []domain.Mode
}

// SessionService exposes study sessions to transports.
type SessionService interface {
	// Create starts a new session.
	Create() *domain.Session

	// Get returns a session by ID.
	Get(id string) (*domain.Session, error)

	// List returns all live sessions.
	List() []domain.Session

	// Clear drops a session's history.
	Clear(id string) error

	// Delete removes a session.
	Delete(id string) error
}
