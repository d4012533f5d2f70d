// Package styles holds the study TUI palette and the lipgloss styles built
// from it.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette. Each colour carries a light and a dark variant and
// lipgloss picks one from the terminal background.
type Theme struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#7C3AED"},
		Secondary: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#06B6D4"},
		Text:      lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"},
		Muted:     lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6C7086"},
		Success:   lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#A6E3A1"},
		Warning:   lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F9E2AF"},
		Error:     lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F38BA8"},
		Border:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"},
		Bar:       lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#181825"},
	}
}

// CardWidth is the flashcard face width before the view clamps it to the
// terminal.
const CardWidth = 60

// Styles are the rendered styles shared by every view.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style

	// Card frames a flashcard face.
	Card lipgloss.Style

	// Correct and Incorrect mark a chosen quiz option once answered.
	Correct   lipgloss.Style
	Incorrect lipgloss.Style
}

// NewStyles builds styles from theme, or the default theme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	framed := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(c)
	}

	return &Styles{
		theme:      theme,
		Title:      fg(theme.Primary).Bold(true),
		Subtitle:   fg(theme.Secondary).Bold(true),
		Normal:     fg(theme.Text),
		Muted:      fg(theme.Muted),
		Selected:   fg(theme.Text).Background(theme.Primary).Bold(true),
		Error:      fg(theme.Error),
		Success:    fg(theme.Success),
		Warning:    fg(theme.Warning),
		InputField: framed(theme.Border).Padding(0, 1),
		StatusBar:  fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:       fg(theme.Muted),
		Border:     framed(theme.Border),
		Card:       framed(theme.Secondary).Padding(1, 3).Width(CardWidth).Align(lipgloss.Center),
		Correct:    fg(theme.Success).Bold(true),
		Incorrect:  fg(theme.Error).Strikethrough(true),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
