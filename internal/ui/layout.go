package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kevsands/prop-ie/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ListWidth returns the width of the notification list when the detail
// pane is shown beside it.
func (l Layout) ListWidth() int {
	if l.Width < 100 {
		return l.Width
	}
	return l.Width * 3 / 5
}

// DetailWidth returns the width of the detail pane, or 0 when the terminal
// is too narrow to show it.
func (l Layout) DetailWidth() int {
	return l.Width - l.ListWidth()
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with a title, an optional unread
// badge, and the connection status on the right.
func (l Layout) RenderHeader(title string, badge string, connStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	if badge != "" {
		titleRendered = lipgloss.JoinHorizontal(
			lipgloss.Top,
			titleRendered,
			theme.BadgeStyle.Render(badge),
		)
	}

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(connStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
