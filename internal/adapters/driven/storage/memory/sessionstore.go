package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in a least-recently-used cache. When the cache
// is full the session with the oldest activity is evicted.
type SessionStore struct {
	mu           sync.Mutex
	sessions     *lru.Cache[string, *domain.Session]
	maxExchanges int
	now          func() time.Time
}

// NewSessionStore creates a store holding at most maxSessions sessions of at
// most maxExchanges question/answer pairs each.
func NewSessionStore(maxSessions, maxExchanges int) (*SessionStore, error) {
	if maxSessions <= 0 || maxExchanges <= 0 {
		return nil, fmt.Errorf("%w: session limits must be positive", domain.ErrInvalidInput)
	}
	cache, err := lru.New[string, *domain.Session](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	return &SessionStore{
		sessions:     cache,
		maxExchanges: maxExchanges,
		now:          time.Now,
	}, nil
}

// Create starts a new empty session.
func (s *SessionStore) Create() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &domain.Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
		Messages:     []domain.Message{},
		DocIDs:       []string{},
	}
	s.sessions.Add(sess.ID, sess)
	return clone(sess)
}

// Get returns a copy of the session.
func (s *SessionStore) Get(id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return clone(sess), nil
}

// Append adds messages to a session and records the document used.
func (s *SessionStore) Append(id, docID string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	now := s.now()
	for _, m := range msgs {
		sess.AddMessage(m, s.maxExchanges, now)
	}
	sess.AddDocID(docID)
	sess.LastActivity = now
	return nil
}

// Clear removes the session's messages.
func (s *SessionStore) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	sess.Messages = []domain.Message{}
	sess.DocIDs = []string{}
	sess.LastActivity = s.now()
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sessions.Remove(id) {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return nil
}

// List returns all live sessions, most recently active first.
func (s *SessionStore) List() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Session, 0, s.sessions.Len())
	for _, sess := range s.sessions.Values() {
		result = append(result, *clone(sess))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result
}

func clone(sess *domain.Session) *domain.Session {
	c := *sess
	c.Messages = append([]domain.Message{}, sess.Messages...)
	c.DocIDs = append([]string{}, sess.DocIDs...)
	return &c
}
