package domain

import "time"

// Role identifies the author of a session message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a study session.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is an in-memory conversation used for follow-up questions.
type Session struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Messages     []Message `json:"messages"`
	DocIDs       []string  `json:"doc_ids"`
}

// AddMessage appends a message, keeping at most maxExchanges
// user/assistant pairs.
func (s *Session) AddMessage(m Message, maxExchanges int, now time.Time) {
	s.Messages = append(s.Messages, m)
	s.LastActivity = now
	if limit := maxExchanges * 2; limit > 0 && len(s.Messages) > limit {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-limit:]...)
	}
}

// AddDocID records a document used in the session.
func (s *Session) AddDocID(docID string) {
	if docID == "" {
		return
	}
	for _, id := range s.DocIDs {
		if id == docID {
			return
		}
	}
	s.DocIDs = append(s.DocIDs, docID)
}
