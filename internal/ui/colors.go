package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytmirror/internal/models"
)

// Styles is the palette used by the CLI.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Status colors a queue entry status.
func (p *Palette) Status(s models.Status) string {
	switch s {
	case models.StatusCompleted:
		return p.OK(string(s))
	case models.StatusFailed:
		return p.Err(string(s))
	case models.StatusProcessing:
		return p.Warn(string(s))
	default:
		return p.Help(string(s))
	}
}

// Match colors a match status.
func (p *Palette) Match(s models.MatchStatus) string {
	switch s {
	case models.MatchMatched:
		return p.OK(string(s))
	case models.MatchAmbiguous:
		return p.Warn(string(s))
	default:
		return p.Err(string(s))
	}
}

// Header renders a title over a rule as wide as the title.
func (p *Palette) Header(title string) string {
	rule := strings.Repeat("═", max(lipgloss.Width(title), 39))
	return fmt.Sprintf("%s\n%s\n", p.Title(title), p.Help(rule))
}

// Table renders rows under a bold header with columns padded to their widest cell.
//
// Widths are measured with [lipgloss.Width], so styled cells still line up.
func (p *Palette) Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	line := func(cells []string, style func(string) string) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			pad := widths[i] - lipgloss.Width(cell)
			b.WriteString(style(cell))
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", pad+2))
			}
		}
		b.WriteString("\n")
	}

	line(header, p.Title)
	for _, row := range rows {
		line(row, func(s string) string { return s })
	}
	return b.String()
}
