// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// CitationList displays the passages an answer was grounded in.
type CitationList struct {
	citations []domain.Citation
	selected  int
	expanded  bool
	styles    *styles.Styles
	width     int
	height    int
}

// NewCitationList creates a new citation list component.
func NewCitationList(s *styles.Styles) *CitationList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &CitationList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (r *CitationList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *CitationList) Update(msg tea.Msg) (*CitationList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		case "tab":
			r.expanded = !r.expanded
		}
	}
	return r, nil
}

// View renders the citations.
func (r *CitationList) View() string {
	if len(r.citations) == 0 {
		return ""
	}

	lines := make([]string, 0, len(r.citations)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(r.citations))))

	maxSnippet := r.width - 30
	if maxSnippet < 20 {
		maxSnippet = 20
	}

	for i := range r.citations {
		c := &r.citations[i]
		indicator := "  "
		if i == r.selected {
			indicator = "> "
		}
		head := fmt.Sprintf("%s[%d] chars %d-%d  %.2f", indicator, i+1, c.StartOffset, c.EndOffset, c.Score)

		snippet := strings.Join(strings.Fields(c.Snippet), " ")
		if !(r.expanded && i == r.selected) && len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet-3] + "..."
		}

		if i == r.selected {
			lines = append(lines, r.styles.Selected.Render(head))
		} else {
			lines = append(lines, r.styles.Normal.Render(head))
		}
		lines = append(lines, r.styles.Muted.Render("    "+snippet))
	}

	return strings.Join(lines, "\n")
}

// SetCitations replaces the citations.
func (r *CitationList) SetCitations(citations []domain.Citation) {
	r.citations = citations
	r.selected = 0
	r.expanded = false
}

// Citations returns the current citations.
func (r *CitationList) Citations() []domain.Citation {
	return r.citations
}

// Selected returns the index of the selected citation.
func (r *CitationList) Selected() int {
	return r.selected
}

// Expanded reports whether the selected snippet is shown in full.
func (r *CitationList) Expanded() bool {
	return r.expanded
}

// MoveUp moves selection up.
func (r *CitationList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *CitationList) MoveDown() {
	if r.selected < len(r.citations)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *CitationList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}
