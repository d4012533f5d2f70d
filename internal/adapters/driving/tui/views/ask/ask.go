// Package ask provides the explain and summarize view.
package ask

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

var (
	errNoDocument  = errors.New("no document selected")
	errEmptyAnswer = errors.New("empty answer")
)

// View asks free-text questions against one document and shows grounded
// answers with their sources. Explain follow-ups share a session.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	study     driving.StudyService
	ctx       context.Context
	input     *input.QuestionInput
	citations *list.CitationList
	statusBar *status.Bar

	document  *domain.Document
	mode      domain.Mode
	answer    *domain.Answer
	lastInput string
	sessionID string
	loading   bool
	err       error

	width  int
	height int
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, study driving.StudyService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	return &View{
		styles:    s,
		keymap:    km,
		study:     study,
		ctx:       context.Background(),
		input:     input.NewQuestionInput(s, "Ask", "What would you like explained?"),
		citations: list.NewCitationList(s),
		statusBar: status.NewBar(s, km),
		mode:      domain.ModeExplain,
		width:     80,
		height:    24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Start resets the view for a document and mode.
func (v *View) Start(doc *domain.Document, mode domain.Mode) tea.Cmd {
	if v.document == nil || doc == nil || v.document.ID != doc.ID {
		v.sessionID = ""
	}
	v.document = doc
	v.mode = mode
	v.answer = nil
	v.err = nil
	v.loading = false
	v.citations.SetCitations(nil)
	v.input.Reset()
	v.statusBar.Clear()
	v.statusBar.SetBindings(nil)

	if mode == domain.ModeSummarize {
		v.input.SetLabel("Topic", "Leave empty to summarise the whole document")
	} else {
		v.input.SetLabel("Ask", "What would you like explained?")
	}
	return v.input.Focus()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.AnswerReceived:
		return v.handleAnswer(msg), nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	if v.input.Focused() {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleAnswer(msg messages.AnswerReceived) *View {
	if msg.Mode != v.mode {
		return v
	}
	v.loading = false
	if msg.Err == nil && msg.Answer == nil {
		msg.Err = errEmptyAnswer
	}
	if msg.Err != nil {
		v.err = msg.Err
		v.statusBar.SetState(status.StateError)
		v.statusBar.SetMessage(msg.Err.Error())
		v.input.Focus()
		return v
	}

	v.err = nil
	v.answer = msg.Answer
	if msg.Answer.SessionID != "" {
		v.sessionID = msg.Answer.SessionID
	}
	v.citations.SetCitations(msg.Answer.Citations)
	v.input.Blur()
	v.statusBar.SetState(status.StateAnswered)
	v.statusBar.SetMessage("")
	v.statusBar.SetBindings(v.keymap.AnswerHelp())
	return v
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.loading {
		return v, nil
	}

	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case v.input.Focused() && keymap.Matches(key, v.keymap.Submit):
		return v, v.submit()

	case v.input.Focused():
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd

	case keymap.Matches(key, v.keymap.NewQuestion):
		v.input.Reset()
		v.statusBar.SetBindings(nil)
		return v, v.input.Focus()
	}

	v.citations, _ = v.citations.Update(msg)
	return v, nil
}

// submit sends the typed question to the study service.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" && v.mode == domain.ModeExplain {
		return nil
	}
	if v.document == nil {
		v.err = errNoDocument
		return nil
	}

	req := domain.AskRequest{
		DocID: v.document.ID,
		Mode:  v.mode,
		Input: question,
	}
	if v.mode == domain.ModeExplain {
		req.SessionID = v.sessionID
	}

	v.lastInput = question
	v.loading = true
	v.err = nil
	v.statusBar.SetState(status.StateThinking)

	mode := v.mode
	study := v.study
	ctx := v.ctx
	return func() tea.Msg {
		answer, err := study.Ask(ctx, req)
		return messages.AnswerReceived{Mode: mode, Answer: answer, Err: err}
	}
}

// View renders the ask view.
func (v *View) View() string {
	var b strings.Builder

	title := "Explain"
	if v.mode == domain.ModeSummarize {
		title = "Summarise"
	}
	if v.document != nil {
		title += ": " + v.document.Title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Thinking..."))
		b.WriteString("\n")
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case v.answer != nil:
		if v.lastInput != "" {
			b.WriteString(v.styles.Subtitle.Render("Q: " + v.lastInput))
			b.WriteString("\n")
		}
		b.WriteString(lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(v.answer.Content))
		b.WriteString("\n\n")
		if v.answer.Warning != "" {
			b.WriteString(v.styles.Warning.Render(v.answer.Warning))
			b.WriteString("\n\n")
		}
		b.WriteString(v.citations.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.statusBar.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.citations.SetDimensions(width, height/3)
	v.statusBar.SetWidth(width)
}

// Answer returns the last answer.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// SessionID returns the session follow-ups are sent under.
func (v *View) SessionID() string {
	return v.sessionID
}

// Mode returns the active mode.
func (v *View) Mode() domain.Mode {
	return v.mode
}

// Loading reports whether a request is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// InputFocused reports whether the question input has focus.
func (v *View) InputFocused() bool {
	return v.input.Focused()
}
