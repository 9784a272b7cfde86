package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kevsands/prop-ie/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStatus struct {
	identity model.Identity
	records  []model.Notification
	unread   int
}

func (f fakeStatus) Identity() model.Identity { return f.identity }

func (f fakeStatus) ConnectionState() string { return "connected" }

func (f fakeStatus) Snapshot() ([]model.Notification, int) { return f.records, f.unread }

func serve(t *testing.T, status Status, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	NewRouter(status, nil).ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := serve(t, fakeStatus{}, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	w := serve(t, fakeStatus{}, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestNotificationsRequiresIdentity(t *testing.T) {
	t.Parallel()

	w := serve(t, fakeStatus{}, "/notifications")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotifications(t *testing.T) {
	t.Parallel()

	status := fakeStatus{
		identity: model.Identity{UserID: "u-1", Authenticated: true},
		records: []model.Notification{{
			ID:        "doc-1",
			Category:  model.CategoryDocument,
			Title:     "Document Status Update",
			Body:      `Your document "a.pdf" has been approved.`,
			CreatedAt: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
			Link:      "/buyer/documents",
		}},
		unread: 1,
	}

	w := serve(t, status, "/notifications")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID        string               `json:"userId"`
		Connection    string               `json:"connection"`
		UnreadCount   int                  `json:"unreadCount"`
		Notifications []model.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "u-1", body.UserID)
	require.Equal(t, "connected", body.Connection)
	require.Equal(t, 1, body.UnreadCount)
	require.Equal(t, status.records, body.Notifications)
}
