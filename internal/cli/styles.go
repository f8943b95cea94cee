package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Outcome colors.
var (
	colorMatch    = lipgloss.Color("#00D26A") // Green
	colorMismatch = lipgloss.Color("#FF3838") // Red
	colorLearned  = lipgloss.Color("#4D96FF") // Blue
	colorMuted    = lipgloss.Color("#6B7280") // Gray
)

// styles renders outcome labels for one writer. Colors are dropped when the
// writer is not a terminal.
type styles struct {
	pass  lipgloss.Style
	fail  lipgloss.Style
	learn lipgloss.Style
	muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		pass:  r.NewStyle().Foreground(colorMatch).Bold(true),
		fail:  r.NewStyle().Foreground(colorMismatch).Bold(true),
		learn: r.NewStyle().Foreground(colorLearned),
		muted: r.NewStyle().Foreground(colorMuted),
	}
}

// outcome renders a check outcome label.
func (s styles) outcome(o string) string {
	switch o {
	case "match":
		return s.pass.Render(o)
	case "mismatch":
		return s.fail.Render(o)
	case "learned":
		return s.learn.Render(o)
	default:
		return o
	}
}

// mark renders the pass/fail prefix of a scenario line.
func (s styles) mark(pass bool) string {
	if pass {
		return s.pass.Render("✓")
	}
	return s.fail.Render("✗")
}
