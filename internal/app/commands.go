package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kevsands/prop-ie/internal/identity"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/notification"
)

// centerChangedMsg signals that the notification center was mutated.
type centerChangedMsg struct{}

// tickMsg triggers a periodic redraw.
type tickMsg time.Time

type loginResultMsg struct {
	identity model.Identity
	err      error
}

type logoutResultMsg struct {
	err error
}

// waitForChange blocks until the center signals a change.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return centerChangedMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// markRead marks a single notification read. The center's change feed
// triggers the redraw.
func markRead(c *notification.Center, id string) tea.Cmd {
	return func() tea.Msg {
		c.MarkAsRead(context.Background(), id)
		return nil
	}
}

func markAllRead(c *notification.Center) tea.Cmd {
	return func() tea.Msg {
		c.MarkAllAsRead(context.Background())
		return nil
	}
}

func clearAll(c *notification.Center) tea.Cmd {
	return func() tea.Msg {
		c.Clear(context.Background())
		return nil
	}
}

func login(s *identity.Session, token string) tea.Cmd {
	token = strings.TrimSpace(token)
	return func() tea.Msg {
		id, err := s.Login(token)
		return loginResultMsg{identity: id, err: err}
	}
}

func logout(s *identity.Session) tea.Cmd {
	return func() tea.Msg {
		return logoutResultMsg{err: s.Logout()}
	}
}

// validateRequired returns a huh validation function that ensures
// the value is not empty.
func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
