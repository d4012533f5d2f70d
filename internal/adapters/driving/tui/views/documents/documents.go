// Package documents is the TUI's document picker: pick a document to study,
// or open its action menu to reindex or delete it.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// Action is an entry in the per-document menu.
type Action int

const (
	ActionStudy Action = iota
	ActionReindex
	ActionDelete
	ActionCancel
)

var actionLabels = [...]string{
	ActionStudy:   "Study",
	ActionReindex: "Reindex",
	ActionDelete:  "Delete",
	ActionCancel:  "Cancel",
}

// chrome is the number of rows taken by the title, notice and help.
const chrome = 8

var errNoService = errors.New("document service not available")

// View lists ingested documents.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model
	docs   driving.DocumentService
	ctx    context.Context

	items  []domain.Document
	cursor int
	offset int
	menu   bool
	action Action

	loading bool
	notice  string
	err     error

	width  int
	height int
}

// NewView creates the picker. A nil styles uses the defaults.
func NewView(s *styles.Styles, docs driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		keys:   keymap.DefaultKeyMap(),
		help:   help.New(),
		docs:   docs,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts loading the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.list()
}

func (v *View) list() tea.Cmd {
	docs, ctx := v.docs, v.ctx
	return func() tea.Msg {
		if docs == nil {
			return messages.DocumentsLoaded{Err: errNoService}
		}
		items, err := docs.List(ctx)
		return messages.DocumentsLoaded{Documents: items, Err: err}
	}
}

// Update handles messages for the picker.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		if v.menu {
			return v, v.menuKey(msg)
		}
		return v, v.listKey(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.items = msg.Documents
			v.cursor = min(v.cursor, max(len(v.items)-1, 0))
			v.scroll()
		}

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Deleted " + msg.DocumentID
		return v, v.list()

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) listKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Up):
		v.move(-1)
	case key.Matches(msg, v.keys.Down):
		v.move(1)
	case key.Matches(msg, v.keys.Select):
		if doc := v.SelectedDocument(); doc != nil {
			return selected(*doc)
		}
	case key.Matches(msg, v.keys.Actions):
		if len(v.items) > 0 {
			v.menu, v.action = true, ActionStudy
		}
	case key.Matches(msg, v.keys.Reload):
		v.loading, v.notice = true, ""
		return v.list()
	case key.Matches(msg, v.keys.Quit), key.Matches(msg, v.keys.Back):
		return tea.Quit
	}
	return nil
}

func (v *View) menuKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Up):
		v.action = max(v.action-1, ActionStudy)
	case key.Matches(msg, v.keys.Down):
		v.action = min(v.action+1, ActionCancel)
	case key.Matches(msg, v.keys.Cancel):
		v.menu = false
	case key.Matches(msg, v.keys.Select):
		v.menu = false
		return v.run(v.action)
	}
	return nil
}

// run performs a menu action on the highlighted document.
func (v *View) run(a Action) tea.Cmd {
	doc := v.SelectedDocument()
	if doc == nil {
		return nil
	}
	docs, ctx, id := v.docs, v.ctx, doc.ID

	switch a {
	case ActionStudy:
		return selected(*doc)
	case ActionReindex:
		return func() tea.Msg {
			if _, err := docs.Reindex(ctx, id); err != nil {
				return messages.ErrorOccurred{Err: err}
			}
			items, err := docs.List(ctx)
			return messages.DocumentsLoaded{Documents: items, Err: err}
		}
	case ActionDelete:
		return func() tea.Msg {
			return messages.DocumentDeleted{DocumentID: id, Err: docs.Delete(ctx, id)}
		}
	}
	return nil
}

func selected(doc domain.Document) tea.Cmd {
	return func() tea.Msg { return messages.DocumentSelected{Document: doc} }
}

func (v *View) move(delta int) {
	next := v.cursor + delta
	if next < 0 || next >= len(v.items) {
		return
	}
	v.cursor = next
	v.scroll()
}

// scroll keeps the cursor inside the visible window.
func (v *View) scroll() {
	rows := v.rows()
	switch {
	case v.cursor < v.offset:
		v.offset = v.cursor
	case v.cursor >= v.offset+rows:
		v.offset = v.cursor - rows + 1
	}
}

func (v *View) rows() int {
	return max(v.height-chrome, 1)
}

// View renders the picker.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.items))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.items) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Run 'sercha-study ingest <file>' first."))
	case v.menu:
		v.renderMenu(&b)
		return b.String()
	default:
		v.renderList(&b)
	}

	if v.notice != "" {
		b.WriteString("\n" + v.styles.Success.Render(v.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(v.help.ShortHelpView(v.keys.PickerHelp()))
	return b.String()
}

func (v *View) renderList(b *strings.Builder) {
	rows := v.rows()
	end := min(v.offset+rows, len(v.items))
	titleWidth := max(v.width/2-4, 10)

	for i := v.offset; i < end; i++ {
		doc := &v.items[i]
		line := fmt.Sprintf("%-*s  %s", titleWidth, truncate(displayTitle(doc), titleWidth), summary(doc))
		if i == v.cursor {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(v.items) > rows {
		b.WriteString("\n" + v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.offset+1, end, len(v.items))))
	}
}

func (v *View) renderMenu(b *strings.Builder) {
	if doc := v.SelectedDocument(); doc != nil {
		b.WriteString(v.styles.Subtitle.Render("Actions for: " + displayTitle(doc)))
		b.WriteString("\n\n")
	}
	for a, label := range actionLabels {
		if Action(a) == v.action {
			b.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.help.ShortHelpView([]key.Binding{v.keys.Up, v.keys.Down, v.keys.Select, v.keys.Cancel}))
}

func displayTitle(doc *domain.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.ID
}

// summary is the right-hand column: chunk count once ready, else status.
func summary(doc *domain.Document) string {
	if !doc.IsReady() {
		return string(doc.Status)
	}
	return fmt.Sprintf("%d chunks", doc.ChunkCount)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.help.Width = width
	v.scroll()
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.Document { return v.items }

// SelectedIndex returns the cursor position.
func (v *View) SelectedIndex() int { return v.cursor }

// SelectedDocument returns the highlighted document, or nil.
func (v *View) SelectedDocument() *domain.Document {
	if v.cursor < len(v.items) {
		return &v.items[v.cursor]
	}
	return nil
}

// IsShowingMenu reports whether the action menu is open.
func (v *View) IsShowingMenu() bool { return v.menu }

// Err returns the last error.
func (v *View) Err() error { return v.err }
