// Package quiz provides the multiple-choice quiz view.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// DefaultNumQuestions is how many questions a quiz requests.
const DefaultNumQuestions = 5

var errNoQuestions = errors.New("no questions returned")

// unanswered marks a question with no chosen option.
const unanswered = -1

// View runs a multiple-choice quiz over a document.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	study     driving.StudyService
	ctx       context.Context
	topic     *input.QuestionInput
	statusBar *status.Bar

	document     *domain.Document
	numQuestions int
	questions    []domain.MCQuestion
	chosen       []int
	warning      string
	current      int
	cursor       int
	loading      bool
	err          error

	width  int
	height int
}

// NewView creates a new quiz view.
func NewView(s *styles.Styles, study driving.StudyService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	return &View{
		styles:       s,
		keymap:       km,
		study:        study,
		ctx:          context.Background(),
		topic:        input.NewQuestionInput(s, "Topic", "Leave empty to cover the whole document"),
		statusBar:    status.NewBar(s, km),
		numQuestions: DefaultNumQuestions,
		width:        80,
		height:       24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Start resets the view for a document and focuses the topic prompt.
func (v *View) Start(doc *domain.Document) tea.Cmd {
	v.document = doc
	v.questions = nil
	v.chosen = nil
	v.warning = ""
	v.current = 0
	v.cursor = 0
	v.loading = false
	v.err = nil
	v.topic.Reset()
	v.statusBar.Clear()
	v.statusBar.SetBindings(nil)
	return v.topic.Focus()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the quiz view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.AnswerReceived:
		if msg.Mode == domain.ModeMCQ {
			v.handleAnswer(msg)
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.loading = false
	if msg.Err == nil && (msg.Answer == nil || len(msg.Answer.Questions) == 0) {
		msg.Err = errNoQuestions
	}
	if msg.Err != nil {
		v.err = msg.Err
		v.statusBar.SetState(status.StateError)
		v.statusBar.SetMessage(msg.Err.Error())
		return
	}

	v.err = nil
	v.questions = msg.Answer.Questions
	v.chosen = make([]int, len(v.questions))
	for i := range v.chosen {
		v.chosen[i] = unanswered
	}
	v.warning = msg.Answer.Warning
	v.current = 0
	v.cursor = 0
	v.statusBar.SetState(status.StateAnswered)
	v.statusBar.SetMessage("")
	v.statusBar.SetBindings(v.keymap.QuizHelp())
	v.updateProgress()
}

//nolint:gocyclo // key dispatch
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.loading {
		return v, nil
	}

	key := msg.String()
	if keymap.Matches(key, v.keymap.Back) {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.topic.Focused() {
		if keymap.Matches(key, v.keymap.Submit) {
			v.topic.Blur()
			return v, v.generate()
		}
		var cmd tea.Cmd
		v.topic, cmd = v.topic.Update(msg)
		return v, cmd
	}

	if len(v.questions) == 0 {
		switch {
		case keymap.Matches(key, v.keymap.Regenerate):
			return v, v.generate()
		case keymap.Matches(key, v.keymap.NewQuestion):
			v.topic.Reset()
			return v, v.topic.Focus()
		}
		return v, nil
	}

	q := v.questions[v.current]
	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.cursor > 0 && !v.Answered(v.current) {
			v.cursor--
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.cursor < len(q.Options)-1 && !v.Answered(v.current) {
			v.cursor++
		}
	case keymap.Matches(key, v.keymap.Select):
		if !v.Answered(v.current) {
			v.chosen[v.current] = v.cursor
		} else if v.current < len(v.questions)-1 {
			v.advance(1)
		}
	case keymap.Matches(key, v.keymap.Next):
		v.advance(1)
	case keymap.Matches(key, v.keymap.Prev):
		v.advance(-1)
	case keymap.Matches(key, v.keymap.Regenerate):
		return v, v.generate()
	case keymap.Matches(key, v.keymap.NewQuestion):
		v.topic.Reset()
		return v, v.topic.Focus()
	}
	v.updateProgress()
	return v, nil
}

func (v *View) advance(delta int) {
	next := v.current + delta
	if next < 0 || next >= len(v.questions) {
		return
	}
	v.current = next
	v.cursor = 0
	if v.Answered(next) {
		v.cursor = v.chosen[next]
	}
}

// generate requests a fresh quiz.
func (v *View) generate() tea.Cmd {
	if v.document == nil {
		return nil
	}

	req := domain.AskRequest{
		DocID:    v.document.ID,
		Mode:     domain.ModeMCQ,
		Input:    strings.TrimSpace(v.topic.Value()),
		NumItems: v.numQuestions,
	}
	v.loading = true
	v.err = nil
	v.statusBar.SetState(status.StateThinking)

	study := v.study
	ctx := v.ctx
	return func() tea.Msg {
		answer, err := study.Ask(ctx, req)
		return messages.AnswerReceived{Mode: domain.ModeMCQ, Answer: answer, Err: err}
	}
}

func (v *View) updateProgress() {
	if len(v.questions) == 0 {
		v.statusBar.SetProgress("")
		return
	}
	correct, answered := v.Score()
	v.statusBar.SetProgress(fmt.Sprintf("Question %d of %d  Score %d/%d",
		v.current+1, len(v.questions), correct, answered))
}

// View renders the quiz view.
func (v *View) View() string {
	var b strings.Builder

	title := "Quiz"
	if v.document != nil {
		title += ": " + v.document.Title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case v.topic.Focused():
		b.WriteString(v.topic.View())
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[enter] generate  [esc] back"))
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Generating questions..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[g] try again  [n] new topic  [esc] back"))
	case len(v.questions) > 0:
		b.WriteString(v.renderQuestion())
		if v.warning != "" {
			b.WriteString("\n")
			b.WriteString(v.styles.Warning.Render(v.warning))
		}
		if v.Finished() {
			correct, _ := v.Score()
			b.WriteString("\n")
			b.WriteString(v.styles.Success.Render(
				fmt.Sprintf("Finished: %d of %d correct. Press g for a new quiz.", correct, len(v.questions))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusBar.View())
	return b.String()
}

func (v *View) renderQuestion() string {
	var b strings.Builder
	q := v.questions[v.current]
	answered := v.Answered(v.current)

	b.WriteString(v.styles.Subtitle.Render(q.Question))
	if q.Difficulty != "" || q.Topic != "" {
		b.WriteString("  ")
		b.WriteString(v.styles.Muted.Render(strings.TrimSpace(q.Difficulty + " " + q.Topic)))
	}
	b.WriteString("\n\n")

	for i, opt := range q.Options {
		cursor := "  "
		if i == v.cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%s) %s", cursor, opt.Label, opt.Text)

		switch {
		case answered && opt.IsCorrect:
			b.WriteString(v.styles.Correct.Render(line))
		case answered && i == v.chosen[v.current]:
			b.WriteString(v.styles.Incorrect.Render(line))
		case i == v.cursor:
			b.WriteString(v.styles.Selected.Render(line))
		default:
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	if answered {
		chosen := q.Options[v.chosen[v.current]]
		b.WriteString("\n")
		if chosen.IsCorrect {
			b.WriteString(v.styles.Correct.Render("Correct!"))
		} else {
			b.WriteString(v.styles.Incorrect.Render("Incorrect."))
		}
		if chosen.Explanation != "" {
			b.WriteString(" ")
			b.WriteString(chosen.Explanation)
		}
		if !chosen.IsCorrect && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			if exp := q.Options[q.CorrectIndex].Explanation; exp != "" {
				b.WriteString("\n")
				b.WriteString(v.styles.Muted.Render(exp))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.topic.SetWidth(width)
	v.statusBar.SetWidth(width)
}

// SetNumQuestions sets how many questions a quiz requests.
func (v *View) SetNumQuestions(n int) {
	if n > 0 {
		v.numQuestions = n
	}
}

// Questions returns the current quiz.
func (v *View) Questions() []domain.MCQuestion {
	return v.questions
}

// Current returns the index of the question on screen.
func (v *View) Current() int {
	return v.current
}

// Cursor returns the highlighted option.
func (v *View) Cursor() int {
	return v.cursor
}

// Answered reports whether question i has been answered.
func (v *View) Answered(i int) bool {
	return i >= 0 && i < len(v.chosen) && v.chosen[i] != unanswered
}

// Score returns the number of correct answers and the number answered.
func (v *View) Score() (correct, answered int) {
	for i, c := range v.chosen {
		if c == unanswered {
			continue
		}
		answered++
		if opts := v.questions[i].Options; c < len(opts) && opts[c].IsCorrect {
			correct++
		}
	}
	return correct, answered
}

// Finished reports whether every question has been answered.
func (v *View) Finished() bool {
	_, answered := v.Score()
	return len(v.questions) > 0 && answered == len(v.questions)
}

// Loading reports whether a request is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Progress returns the progress label.
func (v *View) Progress() string {
	return v.statusBar.Progress()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
