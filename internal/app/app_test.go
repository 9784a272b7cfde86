package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/alert"
	"github.com/kevsands/prop-ie/internal/identity"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/notification"
	"github.com/kevsands/prop-ie/internal/realtime"
	"github.com/kevsands/prop-ie/tests/testutil"
)

var secret = []byte("test-secret")

type nopSub struct{}

func (nopSub) Dispose() {}

type nopSource struct{}

func (nopSource) Subscribe(context.Context, model.Identity, func(realtime.Envelope)) (realtime.Subscription, error) {
	return nopSub{}, nil
}

func newTestModel(t *testing.T) (Model, *notification.Service, *identity.Session) {
	t.Helper()

	center := notification.NewCenter(200)
	svc := notification.NewService(center, nopSource{}, testutil.NewTestStore(t), alert.Nop{}, notification.Options{}, zap.NewNop())
	t.Cleanup(svc.Close)

	session := identity.NewSession(secret, nil, zap.NewNop())

	updated, _ := New(svc, session).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), svc, session
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func insert(t *testing.T, c *notification.Center, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ok := c.Insert(context.Background(), model.Notification{
			ID:        fmt.Sprintf("n-%d", i),
			Category:  model.CategorySystem,
			Title:     fmt.Sprintf("Notice %d", i),
			CreatedAt: time.Now(),
		})
		require.True(t, ok)
	}
}

func TestViewSignedOut(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	view := m.View()
	require.Contains(t, view, "signed out")
	require.Contains(t, view, "No notifications")
	require.Contains(t, view, "L sign in")
}

func TestCenterChangesRefreshBadge(t *testing.T) {
	t.Parallel()

	m, svc, _ := newTestModel(t)
	require.NoError(t, svc.SetIdentity(context.Background(), model.Identity{UserID: "alice", Authenticated: true}))

	insert(t, svc.Center(), 12)

	updated, cmd := m.Update(centerChangedMsg{})
	require.NotNil(t, cmd)
	m = updated.(Model)

	require.Equal(t, 12, m.unread)
	view := m.View()
	require.Contains(t, view, "9+")
	require.Contains(t, view, "alice")
	require.Contains(t, view, "connected")
}

func TestMarkAllReadKey(t *testing.T) {
	t.Parallel()

	m, svc, _ := newTestModel(t)
	insert(t, svc.Center(), 3)

	updated, _ := m.Update(centerChangedMsg{})
	m = updated.(Model)
	require.Equal(t, 3, m.unread)

	_, cmd := m.Update(runes("A"))
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, 0, svc.Center().UnreadCount())
}

func TestSelectMarksRead(t *testing.T) {
	t.Parallel()

	m, svc, _ := newTestModel(t)
	insert(t, svc.Center(), 2)

	updated, _ := m.Update(centerChangedMsg{})
	m = updated.(Model)

	selected, ok := m.inbox.Selected()
	require.True(t, ok)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, 1, svc.Center().UnreadCount())
	for _, n := range svc.Center().Notifications() {
		require.Equal(t, n.ID == selected.ID, n.Read)
	}
}

func TestClearKey(t *testing.T) {
	t.Parallel()

	m, svc, _ := newTestModel(t)
	insert(t, svc.Center(), 2)

	_, cmd := m.Update(runes("C"))
	require.NotNil(t, cmd)
	cmd()

	require.Empty(t, svc.Center().Notifications())
}

func TestLoginCommand(t *testing.T) {
	t.Parallel()

	m, _, session := newTestModel(t)

	token, err := identity.IssueToken(secret, "alice", "buyer", time.Hour)
	require.NoError(t, err)

	msg := login(session, "  "+token+"\n")()
	require.IsType(t, loginResultMsg{}, msg)
	require.Equal(t, "alice", session.Current().UserID)

	updated, _ := m.Update(msg)
	require.Equal(t, "signed in as alice", updated.(Model).statusMessage)

	msg = login(session, "not-a-token")()
	updated, _ = m.Update(msg)
	require.True(t, strings.HasPrefix(updated.(Model).statusMessage, "sign-in failed"))
}

func TestHelpToggle(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	updated, _ := m.Update(runes("?"))
	m = updated.(Model)
	require.Equal(t, ViewHelp, m.currentView)
	require.Contains(t, m.View(), "Keyboard Shortcuts")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ViewInbox, updated.(Model).currentView)
}

func TestLoginKeyOpensForm(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	updated, _ := m.Update(runes("L"))
	m = updated.(Model)
	require.Equal(t, ViewLogin, m.currentView)
	require.NotNil(t, m.loginForm)
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
