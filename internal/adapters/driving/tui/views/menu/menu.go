// Package menu lists the study modes for the chosen document.
package menu

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// Item is one menu entry. Exactly one of Mode, View or Quit applies.
type Item struct {
	Label string
	Mode  domain.Mode
	View  messages.ViewType
	Quit  bool
}

// View is the mode menu.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	items    []Item
	document *domain.Document
	selected int

	width  int
	height int
	ready  bool
}

// NewView creates the menu: one entry per study mode, then navigation.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	modes := domain.AllModes()
	items := make([]Item, 0, len(modes)+3)
	for _, m := range modes {
		items = append(items, Item{Label: m.Description(), Mode: m})
	}
	items = append(items,
		Item{Label: "Choose another document", View: messages.ViewDocuments},
		Item{Label: "Help", View: messages.ViewHelp},
		Item{Label: "Quit", Quit: true},
	)

	return &View{
		styles: s,
		keys:   keymap.DefaultKeyMap(),
		help:   help.New(),
		items:  items,
		width:  80,
		height: 24,
	}
}

// Init implements the view contract; the menu has nothing to load.
func (v *View) Init() tea.Cmd { return nil }

// SetDocument sets the document the menu applies to and resets the cursor.
func (v *View) SetDocument(doc *domain.Document) {
	v.document = doc
	v.selected = 0
}

// Update handles messages for the menu.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Up):
		v.selected = max(v.selected-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.selected = min(v.selected+1, len(v.items)-1)
	case key.Matches(msg, v.keys.Select):
		return v.choose(v.items[v.selected])
	case key.Matches(msg, v.keys.Back):
		return changeView(messages.ViewDocuments)
	case key.Matches(msg, v.keys.Quit):
		return tea.Quit
	}
	return nil
}

func (v *View) choose(item Item) tea.Cmd {
	switch {
	case item.Quit:
		return tea.Quit
	case item.Mode != "":
		return func() tea.Msg { return messages.ModeSelected{Mode: item.Mode} }
	}
	return changeView(item.View)
}

func changeView(to messages.ViewType) tea.Cmd {
	return func() tea.Msg { return messages.ViewChanged{View: to} }
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Sercha Study"))
	b.WriteString("\n\n")

	subtitle := "No document selected"
	if v.document != nil {
		subtitle = v.document.Title
	}
	b.WriteString(v.styles.Muted.Render(subtitle))
	b.WriteString("\n\n")

	for i, item := range v.items {
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(item.Label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(item.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.help.ShortHelpView([]key.Binding{v.keys.Up, v.keys.Down, v.keys.Select, v.keys.Back, v.keys.Quit}))
	return b.String()
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.help.Width = width
	v.ready = true
}

// Selected returns the cursor position.
func (v *View) Selected() int { return v.selected }

// Items returns the menu entries.
func (v *View) Items() []Item { return v.items }
