// Package flashcards provides the flashcard drill view.
package flashcards

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

// DefaultNumCards is how many cards a set requests.
const DefaultNumCards = 5

var errNoCards = errors.New("no flashcards returned")

// View generates a set of flashcards and drills through them.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	study     driving.StudyService
	ctx       context.Context
	topic     *input.QuestionInput
	statusBar *status.Bar

	document *domain.Document
	numCards int
	cards    []domain.Flashcard
	warning  string
	current  int
	flipped  bool
	loading  bool
	err      error

	width  int
	height int
}

// NewView creates a new flashcards view.
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
		topic:     input.NewQuestionInput(s, "Topic", "Leave empty to cover the whole document"),
		statusBar: status.NewBar(s, km),
		numCards:  DefaultNumCards,
		width:     80,
		height:    24,
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
	v.cards = nil
	v.warning = ""
	v.current = 0
	v.flipped = false
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

// Update handles messages for the flashcards view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.AnswerReceived:
		if msg.Mode == domain.ModeFlashcards {
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
	if msg.Err == nil && (msg.Answer == nil || len(msg.Answer.Flashcards) == 0) {
		msg.Err = errNoCards
	}
	if msg.Err != nil {
		v.err = msg.Err
		v.statusBar.SetState(status.StateError)
		v.statusBar.SetMessage(msg.Err.Error())
		return
	}

	v.err = nil
	v.cards = msg.Answer.Flashcards
	v.warning = msg.Answer.Warning
	v.current = 0
	v.flipped = false
	v.statusBar.SetState(status.StateAnswered)
	v.statusBar.SetMessage("")
	v.statusBar.SetBindings(v.keymap.FlashcardHelp())
	v.updateProgress()
}

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

	switch {
	case keymap.Matches(key, v.keymap.Flip):
		v.flipped = !v.flipped
	case keymap.Matches(key, v.keymap.Next):
		if v.current < len(v.cards)-1 {
			v.current++
			v.flipped = false
		}
	case keymap.Matches(key, v.keymap.Prev):
		if v.current > 0 {
			v.current--
			v.flipped = false
		}
	case keymap.Matches(key, v.keymap.Regenerate):
		return v, v.generate()
	case keymap.Matches(key, v.keymap.NewQuestion):
		v.topic.Reset()
		return v, v.topic.Focus()
	}
	v.updateProgress()
	return v, nil
}

// generate requests a fresh set of cards.
func (v *View) generate() tea.Cmd {
	if v.document == nil {
		return nil
	}

	req := domain.AskRequest{
		DocID:    v.document.ID,
		Mode:     domain.ModeFlashcards,
		Input:    strings.TrimSpace(v.topic.Value()),
		NumItems: v.numCards,
	}
	v.loading = true
	v.err = nil
	v.statusBar.SetState(status.StateThinking)

	study := v.study
	ctx := v.ctx
	return func() tea.Msg {
		answer, err := study.Ask(ctx, req)
		return messages.AnswerReceived{Mode: domain.ModeFlashcards, Answer: answer, Err: err}
	}
}

func (v *View) updateProgress() {
	if len(v.cards) == 0 {
		v.statusBar.SetProgress("")
		return
	}
	v.statusBar.SetProgress(fmt.Sprintf("Card %d of %d", v.current+1, len(v.cards)))
}

// View renders the flashcards view.
func (v *View) View() string {
	var b strings.Builder

	title := "Flashcards"
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
		b.WriteString(v.styles.Muted.Render("Generating flashcards..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[g] try again  [n] new topic  [esc] back"))
	case len(v.cards) > 0:
		b.WriteString(v.renderCard(v.cards[v.current]))
		if v.warning != "" {
			b.WriteString("\n")
			b.WriteString(v.styles.Warning.Render(v.warning))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusBar.View())
	return b.String()
}

func (v *View) renderCard(card domain.Flashcard) string {
	width := min(max(v.width-8, 20), styles.CardWidth)

	var body string
	if v.flipped {
		body = v.styles.Success.Render("A: ") + card.Back
		if card.Mnemonic != "" {
			body += "\n\n" + v.styles.Muted.Render("Mnemonic: "+card.Mnemonic)
		}
	} else {
		body = v.styles.Subtitle.Render("Q: ") + card.Front + "\n\n" +
			v.styles.Muted.Render("(space to flip)")
	}
	return v.styles.Card.Width(width).Render(body)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.topic.SetWidth(width)
	v.statusBar.SetWidth(width)
}

// SetNumCards sets how many cards a set requests.
func (v *View) SetNumCards(n int) {
	if n > 0 {
		v.numCards = n
	}
}

// Cards returns the current set.
func (v *View) Cards() []domain.Flashcard {
	return v.cards
}

// Current returns the index of the card on screen.
func (v *View) Current() int {
	return v.current
}

// Flipped reports whether the card shows its back.
func (v *View) Flipped() bool {
	return v.flipped
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
