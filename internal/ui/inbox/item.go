package inbox

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/theme"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Delegate implements list.ItemDelegate for rendering notifications.
type Delegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws the title line and a one-line preview of the body.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification
	width := m.Width()

	marker := " "
	if !n.Read {
		marker = "●"
	}
	category := theme.CategoryStyle(string(n.Category)).Render(fmt.Sprintf("%-8s", n.Category))
	when := theme.DimmedStyle.Render(relativeTime(n.CreatedAt, d.now()))

	titleWidth := width - lipgloss.Width(category) - lipgloss.Width(when) - 6
	title := truncate(n.Title, titleWidth)
	body := truncate(n.Body, width-4)

	line1 := fmt.Sprintf("%s %s %s", marker, category, title)
	gap := width - lipgloss.Width(line1) - lipgloss.Width(when) - 3
	if gap > 0 {
		line1 += strings.Repeat(" ", gap)
	}
	line1 += " " + when
	line2 := "  " + body

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	if n.Read {
		line2 = theme.DimmedStyle.Render(line2)
	}

	fmt.Fprint(w, style.Render(line1+"\n"+line2))
}

// Badge returns the unread counter label: empty for zero, "9+" above nine.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 9:
		return "9+"
	default:
		return strconv.Itoa(unread)
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Local().Format("2 Jan 2006")
	}
}

// truncate shortens s to at most max display cells, ending in "…".
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
