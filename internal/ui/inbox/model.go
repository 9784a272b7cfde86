package inbox

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kevsands/prop-ie/internal/keys"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/theme"
)

// Model is the notification list with an optional detail pane.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	width       int
	height      int
	detailWidth int
}

// New creates a new inbox model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, Delegate{now: time.Now}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("notification", "notifications")
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetNotifications replaces the displayed records, keeping the cursor on
// the same notification when it is still present.
func (m *Model) SetNotifications(records []model.Notification) {
	selectedID := ""
	if n, ok := m.Selected(); ok {
		selectedID = n.ID
	}

	items := make([]list.Item, len(records))
	cursor := 0
	for i, n := range records {
		items[i] = Item{Notification: n}
		if n.ID == selectedID {
			cursor = i
		}
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(cursor)
	}
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Len returns the number of displayed notifications.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Update handles navigation messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list, and the detail pane when there is room.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		empty := theme.HelpStyle.Render("No notifications")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, empty)
	}

	listView := m.list.View()
	if m.detailWidth == 0 {
		return listView
	}

	n, ok := m.Selected()
	if !ok {
		return listView
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, listView, renderDetail(n, m.detailWidth, m.height))
}

// SetSize updates the dimensions. A zero detailWidth hides the detail pane.
func (m *Model) SetSize(listWidth, height, detailWidth int) {
	m.width = listWidth + detailWidth
	m.height = height
	m.detailWidth = detailWidth
	m.list.SetSize(listWidth, height)
}

// renderDetail renders the full notification, its link and its payload.
func renderDetail(n model.Notification, width, height int) string {
	var b strings.Builder

	b.WriteString(theme.CategoryStyle(string(n.Category)).Render(strings.ToUpper(string(n.Category))))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(n.Title))
	b.WriteString("\n\n")
	b.WriteString(n.Body)
	b.WriteString("\n\n")
	b.WriteString(theme.DimmedStyle.Render(n.CreatedAt.Local().Format("Mon 2 Jan 2006 15:04")))

	if n.Link != "" {
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("→ " + n.Link))
	}

	if len(n.Payload) > 0 {
		var pretty any
		if err := json.Unmarshal(n.Payload, &pretty); err == nil {
			if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				b.WriteString("\n\n")
				b.WriteString(theme.DimmedStyle.Render(string(out)))
			}
		}
	}

	status := "unread"
	if n.Read {
		status = "read"
	}
	b.WriteString("\n\n")
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf("%s · %s", n.ID, status)))

	return theme.DetailPanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(b.String())
}
