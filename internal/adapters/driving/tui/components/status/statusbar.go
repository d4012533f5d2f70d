// Package status renders the one-line bar under each study view: what the
// view is doing on the left, the keys that apply right now on the right.
package status

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
)

// State is what the owning view is doing.
type State int

const (
	StateReady State = iota
	StateThinking
	StateAnswered
	StateError
)

// Bar is a passive component; views drive it through setters.
type Bar struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	state    State
	message  string
	progress string
	bindings []key.Binding
	width    int
}

// NewBar creates a bar. Nil arguments use the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	h := help.New()
	h.ShortSeparator = " | "
	h.Styles.ShortKey = s.Muted
	h.Styles.ShortDesc = s.Muted
	h.Styles.ShortSeparator = s.Muted

	return &Bar{styles: s, keys: km, help: h, width: 80}
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left := b.status()
	right := b.help.ShortHelpView(b.hints())
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) status() string {
	switch b.state {
	case StateThinking:
		return b.styles.Muted.Render("Thinking...")
	case StateError:
		if b.message == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.message)
	}
	switch {
	case b.progress != "":
		return b.styles.Normal.Render(b.progress)
	case b.message != "":
		return b.styles.Muted.Render(b.message)
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) hints() []key.Binding {
	if len(b.bindings) > 0 {
		return b.bindings
	}
	return b.keys.ShortHelp()
}

// SetState sets what the view is doing.
func (b *Bar) SetState(s State) { b.state = s }

// SetMessage sets the text shown with the state. Errors show it after
// "Error: "; otherwise it shows when there is no progress label.
func (b *Bar) SetMessage(m string) { b.message = m }

// SetProgress sets a label such as "Card 2 of 5".
func (b *Bar) SetProgress(p string) { b.progress = p }

// Progress returns the progress label.
func (b *Bar) Progress() string { return b.progress }

// SetBindings replaces the key hints. Nil restores quit and help.
func (b *Bar) SetBindings(bindings []key.Binding) { b.bindings = bindings }

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(w int) {
	b.width = w
	b.help.Width = w
}

// Clear returns the bar to ready with no message or progress.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.progress = ""
}
