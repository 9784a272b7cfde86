package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorIndigo  = lipgloss.AdaptiveColor{Dark: "#748FFC", Light: "#4C51BF"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail and help panels.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// DimmedStyle renders read notifications.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BadgeStyle renders the unread counter.
var BadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(ColorRed).
	Padding(0, 1)

// CategoryStyle returns a color-coded style for a notification category,
// matching the icon colors of the web client.
func CategoryStyle(category string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch category {
	case "document":
		return base.Foreground(ColorBlue)
	case "payment":
		return base.Foreground(ColorGreen)
	case "property":
		return base.Foreground(ColorIndigo)
	case "message":
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}

// ConnectionStyle returns a color-coded style for a connection state label.
func ConnectionStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch state {
	case "connected":
		return base.Foreground(ColorGreen)
	case "connecting":
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorRed)
	}
}
