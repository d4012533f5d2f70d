package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/views/flashcards"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/views/quiz"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	documentsView  *documents.View
	menuView       *menu.View
	askView        *ask.View
	flashcardsView *flashcards.View
	quizView       *quiz.View

	// selectedDocument is the document being studied.
	selectedDocument *domain.Document

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is where esc returns to from help.
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		keymap:         keymap.DefaultKeyMap(),
		help:           help.New(),
		documentsView:  documents.NewView(s, ports.Documents),
		menuView:       menu.NewView(s),
		askView:        ask.NewView(s, ports.Study),
		flashcardsView: flashcards.NewView(s, ports.Study),
		quizView:       quiz.NewView(s, ports.Study),
		currentView:    messages.ViewDocuments,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.documentsView.WithContext(ctx)
	a.askView.WithContext(ctx)
	a.flashcardsView.WithContext(ctx)
	a.quizView.WithContext(ctx)
	return a
}

// SelectDocument starts the app on the mode menu for doc instead of the
// document picker.
func (a *App) SelectDocument(doc domain.Document) {
	a.selectedDocument = &doc
	a.menuView.SetDocument(a.selectedDocument)
	a.currentView = messages.ViewMenu
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tea.SetWindowTitle("sercha-study"),
	}
	if a.currentView == messages.ViewDocuments {
		cmds = append(cmds, a.documentsView.Init())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if keymap.Matches(msg.String(), a.keymap.Back) || keymap.Matches(msg.String(), a.keymap.Help) {
				a.currentView = a.previousView
			}
			return a, nil
		}
		if a.currentView == messages.ViewMenu && keymap.Matches(msg.String(), a.keymap.Help) {
			a.showHelp()
			return a, nil
		}

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.DocumentSelected:
		a.selectedDocument = &msg.Document
		a.menuView.SetDocument(a.selectedDocument)
		a.currentView = messages.ViewMenu
		return a, nil

	case messages.ModeSelected:
		return a, a.startMode(msg.Mode)

	case messages.DocumentDeleted:
		if msg.Err == nil && a.selectedDocument != nil && a.selectedDocument.ID == msg.DocumentID {
			a.selectedDocument = nil
			a.menuView.SetDocument(nil)
		}
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.AnswerReceived:
		if msg.Err != nil {
			a.err = msg.Err
		}
		switch msg.Mode {
		case domain.ModeFlashcards:
			a.flashcardsView, cmd = a.flashcardsView.Update(msg)
		case domain.ModeMCQ:
			a.quizView, cmd = a.quizView.Update(msg)
		case domain.ModeExplain, domain.ModeSummarize:
			a.askView, cmd = a.askView.Update(msg)
		}
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewFlashcards:
		a.flashcardsView, cmd = a.flashcardsView.Update(msg)
	case messages.ViewQuiz:
		a.quizView, cmd = a.quizView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	switch view {
	case messages.ViewHelp:
		a.showHelp()
		return nil
	case messages.ViewDocuments:
		a.currentView = view
		return a.documentsView.Init()
	case messages.ViewMenu, messages.ViewAsk, messages.ViewFlashcards, messages.ViewQuiz:
		if a.selectedDocument == nil {
			a.currentView = messages.ViewDocuments
			return a.documentsView.Init()
		}
		a.currentView = view
	}
	return nil
}

func (a *App) startMode(mode domain.Mode) tea.Cmd {
	if a.selectedDocument == nil {
		a.currentView = messages.ViewDocuments
		return a.documentsView.Init()
	}

	switch mode {
	case domain.ModeFlashcards:
		a.currentView = messages.ViewFlashcards
		return a.flashcardsView.Start(a.selectedDocument)
	case domain.ModeMCQ:
		a.currentView = messages.ViewQuiz
		return a.quizView.Start(a.selectedDocument)
	case domain.ModeExplain, domain.ModeSummarize:
		a.currentView = messages.ViewAsk
		return a.askView.Start(a.selectedDocument, mode)
	}
	return nil
}

func (a *App) showHelp() {
	if a.currentView != messages.ViewHelp {
		a.previousView = a.currentView
	}
	a.currentView = messages.ViewHelp
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewMenu:
		return a.menuView.View()
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewFlashcards:
		return a.flashcardsView.View()
	case messages.ViewQuiz:
		return a.quizView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.documentsView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + "\n\n" +
		a.help.FullHelpView(a.keymap.FullHelp()) + "\n\n" +
		a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SelectedDocument returns the document being studied.
func (a *App) SelectedDocument() *domain.Document {
	return a.selectedDocument
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.help.Width = width
	a.documentsView.SetDimensions(width, height)
	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.flashcardsView.SetDimensions(width, height)
	a.quizView.SetDimensions(width, height)
}
