// Package messages holds the tea.Msg types the study TUI views exchange.
package messages

import (
	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// ViewType identifies a screen of the TUI.
type ViewType int

// Screens, in the order a study session usually visits them.
const (
	ViewDocuments ViewType = iota // document picker
	ViewMenu                      // study modes for the picked document
	ViewAsk                       // explain and summarize
	ViewFlashcards
	ViewQuiz
	ViewHelp
)

var viewNames = [...]string{"documents", "menu", "ask", "flashcards", "quiz", "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to switch screens.
type ViewChanged struct {
	View ViewType
}

// ErrorOccurred reports a failure the status bar should show.
type ErrorOccurred struct {
	Err error
}

// DocumentsLoaded carries the result of listing documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected is sent when the user picks a ready document.
type DocumentSelected struct {
	Document domain.Document
}

// DocumentDeleted reports the outcome of a delete from the picker.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// ModeSelected is sent when the user picks a study mode.
type ModeSelected struct {
	Mode domain.Mode
}

// AnswerReceived carries the orchestrator's reply for Mode.
type AnswerReceived struct {
	Mode   domain.Mode
	Answer *domain.Answer
	Err    error
}
