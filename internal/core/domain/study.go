package domain

// Mode selects how the orchestrator turns retrieved context into an answer.
type Mode string

// Available study modes.
const (
	// ModeExplain answers a question in plain language.
	ModeExplain Mode = "explain"

	// ModeSummarize summarises the document or a topic within it.
	ModeSummarize Mode = "summarize"

	// ModeFlashcards produces question/answer cards.
	ModeFlashcards Mode = "flashcards"

	// ModeMCQ produces four-option multiple-choice questions.
	ModeMCQ Mode = "mcq"
)

// Item count limits for structured modes.
const (
	DefaultNumItems = 5
	MaxNumItems     = 20
)

// IsValid returns true if the mode is recognised.
func (m Mode) IsValid() bool {
	switch m {
	case ModeExplain, ModeSummarize, ModeFlashcards, ModeMCQ:
		return true
	default:
		return false
	}
}

// IsStructured returns true if the mode produces parsed JSON output.
func (m Mode) IsStructured() bool {
	return m == ModeFlashcards || m == ModeMCQ
}

// String returns the string representation.
func (m Mode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m Mode) Description() string {
	switch m {
	case ModeExplain:
		return "Explain a concept simply, grounded in the document"
	case ModeSummarize:
		return "Summarise the document or a topic within it"
	case ModeFlashcards:
		return "Generate study flashcards with mnemonics"
	case ModeMCQ:
		return "Generate multiple-choice questions with explanations"
	default:
		return unknownDescription
	}
}

// AllModes returns all study modes.
func AllModes() []Mode {
	return []Mode{ModeExplain, ModeSummarize, ModeFlashcards, ModeMCQ}
}

// Flashcard is a question/answer pair.
type Flashcard struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

// MCQOption is one answer choice.
type MCQOption struct {
	Label       string `json:"label"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// MCQuestion is a multiple-choice question with exactly four options,
// exactly one of which is correct.
type MCQuestion struct {
	Question     string      `json:"question"`
	Options      []MCQOption `json:"options"`
	CorrectIndex int         `json:"correct_index"`
	Difficulty   string      `json:"difficulty,omitempty"`
	Topic        string      `json:"topic,omitempty"`
}

// Citation is a provenance record attached to generated content.
type Citation struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"doc_id"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
}

// AskRequest is a single study question against one document.
type AskRequest struct {
	DocID     string `json:"doc_id"`
	Mode      Mode   `json:"mode"`
	Input     string `json:"input,omitempty"`
	NumItems  int    `json:"num_items,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Answer is the orchestrator's response. Content is set for explain and
// summarize; Flashcards or Questions for the structured modes.
type Answer struct {
	Mode       Mode         `json:"mode"`
	DocID      string       `json:"doc_id"`
	Content    string       `json:"content,omitempty"`
	Flashcards []Flashcard  `json:"flashcards,omitempty"`
	Questions  []MCQuestion `json:"questions,omitempty"`
	Citations  []Citation   `json:"citations"`
	SessionID  string       `json:"session_id,omitempty"`
	Warning    string       `json:"warning,omitempty"`
}
