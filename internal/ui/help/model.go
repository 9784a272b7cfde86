package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kevsands/prop-ie/internal/keys"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/theme"
)

// legendCategories are listed in the order the web client shows them.
var legendCategories = []model.Category{
	model.CategoryDocument,
	model.CategoryPayment,
	model.CategoryProperty,
	model.CategoryMessage,
	model.CategorySystem,
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay: key bindings followed by the category legend.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	legend := make([]string, 0, len(legendCategories))
	for _, c := range legendCategories {
		legend = append(legend, theme.CategoryStyle(string(c)).Render("● "+string(c)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Categories"),
		strings.Join(legend, "  "),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
