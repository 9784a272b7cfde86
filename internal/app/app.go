package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/kevsands/prop-ie/internal/identity"
	"github.com/kevsands/prop-ie/internal/keys"
	"github.com/kevsands/prop-ie/internal/notification"
	"github.com/kevsands/prop-ie/internal/theme"
	"github.com/kevsands/prop-ie/internal/ui"
	helpview "github.com/kevsands/prop-ie/internal/ui/help"
	"github.com/kevsands/prop-ie/internal/ui/inbox"
)

// refreshInterval controls how often relative timestamps and the
// connection status are redrawn without a center change.
const refreshInterval = 15 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewHelp
	ViewLogin
)

// Model is the root Bubble Tea model. It renders the notification center
// of a Service and forwards read-state actions back to it.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	service      *notification.Service
	session      *identity.Session
	keys         *keys.KeyMap
	inbox        inbox.Model
	helpView     helpview.Model

	loginForm  *huh.Form
	loginToken *string

	changes     <-chan struct{}
	unsubscribe func()

	unread        int
	ready         bool
	statusMessage string
}

// New creates the root model for svc. session backs the sign-in and
// sign-out actions.
func New(svc *notification.Service, session *identity.Session) Model {
	k := keys.DefaultKeyMap()
	changes, unsubscribe := svc.Center().Subscribe()

	m := Model{
		currentView: ViewInbox,
		service:     svc,
		session:     session,
		keys:        k,
		inbox:       inbox.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		loginToken:  new(string),
		changes:     changes,
		unsubscribe: unsubscribe,
	}
	m.refresh()
	return m
}

// Init starts listening for center changes and the periodic redraw.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.changes),
		tick(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentHeight := m.layout.ContentHeight()
		m.inbox.SetSize(m.layout.ListWidth(), contentHeight, m.layout.DetailWidth())
		m.helpView.SetSize(m.layout.ContentWidth(), contentHeight)
		if m.loginForm != nil {
			m.loginForm = m.loginForm.WithWidth(m.formWidth())
		}
		return m.updateActiveView(msg)

	case centerChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case tickMsg:
		return m, tick()

	case loginResultMsg:
		if msg.err != nil {
			m.statusMessage = "sign-in failed: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("signed in as %s", msg.identity.UserID)
		return m, nil

	case logoutResultMsg:
		if msg.err != nil {
			m.statusMessage = "sign-out: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = "signed out"
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewLogin {
			if key.Matches(msg, m.keys.Back) {
				m.loginForm = nil
				m.currentView = ViewInbox
				return m, nil
			}
			return m.updateLoginForm(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.unsubscribe()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.statusMessage = ""
			return m, nil
		}

		if m.currentView == ViewInbox {
			switch {
			case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.MarkRead):
				if n, ok := m.inbox.Selected(); ok && !n.Read {
					return m, markRead(m.service.Center(), n.ID)
				}
				return m, nil

			case key.Matches(msg, m.keys.MarkAllRead):
				return m, markAllRead(m.service.Center())

			case key.Matches(msg, m.keys.Clear):
				return m, clearAll(m.service.Center())

			case key.Matches(msg, m.keys.Login):
				*m.loginToken = ""
				m.loginForm = m.buildLoginForm()
				m.previousView = m.currentView
				m.currentView = ViewLogin
				return m, m.loginForm.Init()

			case key.Matches(msg, m.keys.Logout):
				return m, logout(m.session)
			}
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewLogin:
		return m.updateLoginForm(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("prop-ie notifications", inbox.Badge(m.unread), m.connectionStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewLogin:
		if m.loginForm == nil {
			return ""
		}
		return theme.DetailPanelStyle.
			Width(m.layout.ContentWidth() - 4).
			Height(m.layout.ContentHeight() - 4).
			Render(m.loginForm.View())
	default:
		return m.inbox.View()
	}
}

// refresh re-reads the center into the inbox.
func (m *Model) refresh() {
	records, unread := m.service.Center().Snapshot()
	m.inbox.SetNotifications(records)
	m.unread = unread
}

// connectionStatus describes the signed-in user and channel state.
func (m Model) connectionStatus() string {
	id := m.service.Identity()
	if !id.Authenticated {
		return theme.DimmedStyle.Render("signed out")
	}

	state := m.service.ConnectionState().String()
	return fmt.Sprintf("%s %s", id.UserID, theme.ConnectionStyle(state).Render("● "+state))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMessage != "" && m.currentView == ViewInbox {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewLogin:
		return "enter sign in | esc cancel"
	default:
		if !m.service.Identity().Authenticated {
			return "L sign in | ? help | q quit"
		}
		return "enter open | A mark all read | C clear | O sign out | ? help | q quit"
	}
}

// --- Login form ---

func (m Model) buildLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Access token").
				Description("Paste the bearer token issued by the portal").
				EchoMode(huh.EchoModePassword).
				Value(m.loginToken).
				Validate(validateRequired("Token")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateLoginForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.loginForm == nil {
		m.currentView = ViewInbox
		return m, nil
	}

	mdl, cmd := m.loginForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.loginForm = f
	}

	switch m.loginForm.State {
	case huh.StateCompleted:
		m.loginForm = nil
		m.currentView = ViewInbox
		return m, login(m.session, *m.loginToken)
	case huh.StateAborted:
		m.loginForm = nil
		m.currentView = ViewInbox
		return m, nil
	}

	return m, cmd
}

func (m Model) formWidth() int {
	w := m.layout.ContentWidth() - 8
	if w < 40 {
		return 40
	}
	return w
}
