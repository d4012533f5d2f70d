// Package input holds the single-line prompt used for questions and topics.
package input

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
)

// MaxChars caps a typed question. Longer prompts belong in a document.
const MaxChars = 1024

// counterThreshold is how close to MaxChars the counter starts showing.
const counterThreshold = 100

// QuestionInput is a labelled textinput. The label changes with the mode:
// "Question" for explain, "Topic" for the others.
type QuestionInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
}

// NewQuestionInput creates a focused input labelled label.
func NewQuestionInput(s *styles.Styles, label, placeholder string) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = MaxChars
	ti.Width = 50
	ti.Focus()

	return &QuestionInput{textinput: ti, styles: s, label: label}
}

// SetLabel changes the label and placeholder.
func (q *QuestionInput) SetLabel(label, placeholder string) {
	q.label = label
	q.textinput.Placeholder = placeholder
}

// Label returns the current label.
func (q *QuestionInput) Label() string { return q.label }

// Init starts the cursor blinking.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards msg to the textinput.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the label, the framed input and, near the limit, a counter.
func (q *QuestionInput) View() string {
	label := q.styles.Title.Render(q.label + ": ")
	field := q.styles.InputField.Render(q.textinput.View())
	row := lipgloss.JoinHorizontal(lipgloss.Center, label, field)

	if n := len([]rune(q.textinput.Value())); n > MaxChars-counterThreshold {
		row += " " + q.styles.Warning.Render(fmt.Sprintf("%d/%d", n, MaxChars))
	}
	return row
}

// Value returns the typed text without surrounding whitespace.
func (q *QuestionInput) Value() string {
	return strings.TrimSpace(q.textinput.Value())
}

// Focus gives the input keyboard focus.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur drops focus so view-level keys are not typed into the input.
func (q *QuestionInput) Blur() {
	q.textinput.Blur()
}

// Focused reports whether the input has focus.
func (q *QuestionInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth fits the input to a terminal width, leaving room for the label.
func (q *QuestionInput) SetWidth(width int) {
	q.textinput.Width = max(width-len(q.label)-10, 20)
}

// Reset clears the typed text.
func (q *QuestionInput) Reset() {
	q.textinput.Reset()
}
