package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/alx/internal/models"
)

// AniList blue, green, red, orange and muted grey.
var styles = NewPalette("#3DB4F2", "#68D639", "#E85D75", "#F79A63", "#8BA0B2")

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

var _ Painter = (*Palette)(nil)

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// ForOutcome picks the style an outcome kind is rendered in.
func (p *Palette) ForOutcome(k models.OutcomeKind) lipgloss.Style {
	switch k {
	case models.OutcomeMoved, models.OutcomeWouldMove:
		return p.ok
	case models.OutcomeFailed:
		return p.err
	case models.OutcomeSkippedNoTitle, models.OutcomeSkippedNoMatch:
		return p.warn
	default:
		return p.help
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
