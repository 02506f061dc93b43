package report

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	colorAccent = "39"  // headings
	colorLabel  = "245" // field names
	colorRule   = "238" // separators
	colorError  = "196"
)

// styles renders report decorations. Plain output uses markdown markers so
// piped reports stay readable by tools and language models.
type styles struct {
	color      bool
	heading    lipgloss.Style
	subheading lipgloss.Style
	label      lipgloss.Style
	rule       lipgloss.Style
	err        lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		return styles{}
	}
	return styles{
		color:      true,
		heading:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		subheading: lipgloss.NewStyle().Bold(true),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorLabel)),
		rule:       lipgloss.NewStyle().Foreground(lipgloss.Color(colorRule)),
		err:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorError)),
	}
}

func (s styles) h2(text string) string {
	if !s.color {
		return "## " + text
	}
	return s.heading.Render(text)
}

func (s styles) h3(text string) string {
	if !s.color {
		return "### " + text
	}
	return s.subheading.Render(text)
}

func (s styles) key(name string) string {
	if !s.color {
		return "**" + name + ":**"
	}
	return s.label.Render(name + ":")
}

func (s styles) separator(text string) string {
	if !s.color {
		return text
	}
	return s.rule.Render(text)
}

func (s styles) failure(text string) string {
	if !s.color {
		return text
	}
	return s.err.Render(text)
}

// IsTerminal reports whether f is an interactive terminal, in which case
// text reports are styled.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
