package services

import (
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// SessionService exposes the session store to transports.
type SessionService struct {
	store driven.SessionStore
}

// NewSessionService creates a new session service.
func NewSessionService(store driven.SessionStore) *SessionService {
	return &SessionService{store: store}
}

// Create starts a new session.
func (s *SessionService) Create() *domain.Session {
	return s.store.Create()
}

// Get returns a session by ID.
func (s *SessionService) Get(id string) (*domain.Session, error) {
	return s.store.Get(id)
}

// List returns all live sessions.
func (s *SessionService) List() []domain.Session {
	return s.store.List()
}

// Clear drops a session's history.
func (s *SessionService) Clear(id string) error {
	return s.store.Clear(id)
}

// Delete removes a session.
func (s *SessionService) Delete(id string) error {
	return s.store.Delete(id)
}
