package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/store"
	"github.com/kevsands/prop-ie/tests/testutil"
)

func record(id string, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Category:  model.CategorySystem,
		Title:     "Title " + id,
		Body:      "Body " + id,
		CreatedAt: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		Read:      read,
	}
}

func ids(records []model.Notification) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func countUnread(records []model.Notification) int {
	n := 0
	for _, r := range records {
		if !r.Read {
			n++
		}
	}
	return n
}

// failingStore fails every operation.
type failingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingStore) LoadSnapshot(context.Context, string) ([]byte, error) { return nil, errDiskFull }
func (failingStore) SaveSnapshot(context.Context, string, []byte) error  { return errDiskFull }
func (failingStore) DeleteSnapshot(context.Context, string) error        { return errDiskFull }
func (failingStore) Close() error                                        { return nil }

func TestCenterInsertKeepsUnreadCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reads []bool
	}{
		{"empty", nil},
		{"all unread", []bool{false, false, false}},
		{"all read", []bool{true, true}},
		{"mixed", []bool{false, true, false, true, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewCenter(0)
			for i, read := range tt.reads {
				require.True(t, c.Insert(context.Background(), record(fmt.Sprintf("n-%d", i), read)))
			}

			records, unread := c.Snapshot()
			require.Len(t, records, len(tt.reads))
			require.Equal(t, countUnread(records), unread)
			require.Equal(t, unread, c.UnreadCount())
		})
	}
}

func TestCenterInsertNewestFirst(t *testing.T) {
	t.Parallel()

	c := NewCenter(0)
	ctx := context.Background()
	c.Insert(ctx, record("a", false))
	c.Insert(ctx, record("b", false))
	c.Insert(ctx, record("c", false))

	require.Equal(t, []string{"c", "b", "a"}, ids(c.Notifications()))
}

func TestCenterRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	c := NewCenter(0)
	ctx := context.Background()

	require.True(t, c.Insert(ctx, record("a", false)))
	require.False(t, c.Insert(ctx, record("a", false)))
	require.Len(t, c.Notifications(), 1)
	require.Equal(t, 1, c.UnreadCount())
}

func TestCenterMarkAsRead(t *testing.T) {
	t.Parallel()

	c := NewCenter(0)
	ctx := context.Background()
	c.Insert(ctx, record("a", false))
	c.Insert(ctx, record("b", false))

	require.True(t, c.MarkAsRead(ctx, "a"))
	require.Equal(t, 1, c.UnreadCount())

	// Already read and unknown IDs leave the counter alone.
	require.False(t, c.MarkAsRead(ctx, "a"))
	require.False(t, c.MarkAsRead(ctx, "missing"))
	require.Equal(t, 1, c.UnreadCount())

	records := c.Notifications()
	require.Equal(t, countUnread(records), c.UnreadCount())
}

func TestCenterMarkAllThenMarkIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewCenter(0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.Insert(ctx, record(fmt.Sprintf("n-%d", i), i%2 == 0))
	}

	c.MarkAllAsRead(ctx)
	require.Zero(t, c.UnreadCount())

	for _, id := range []string{"n-0", "n-1", "n-4", "missing"} {
		c.MarkAsRead(ctx, id)
		require.Zero(t, c.UnreadCount())
	}
	require.Zero(t, countUnread(c.Notifications()))
}

func TestCenterMemoryLimitEvictsOldest(t *testing.T) {
	t.Parallel()

	c := NewCenter(3)
	ctx := context.Background()
	c.Insert(ctx, record("a", false))
	c.Insert(ctx, record("b", true))
	c.Insert(ctx, record("c", false))
	c.Insert(ctx, record("d", false))

	records, unread := c.Snapshot()
	require.Equal(t, []string{"d", "c", "b"}, ids(records))
	require.Equal(t, 2, unread)

	// The evicted ID may be inserted again.
	require.True(t, c.Insert(ctx, record("a", false)))
}

func TestCenterClearErasesSnapshot(t *testing.T) {
	t.Parallel()

	s := testutil.NewTestStore(t)
	ctx := context.Background()
	mirror := NewMirror(s, "notifications:u1", 50, nil)

	c := NewCenter(0)
	c.Reset(nil, mirror)
	c.Insert(ctx, record("a", false))
	c.Insert(ctx, record("b", false))

	c.Clear(ctx)
	records, unread := c.Snapshot()
	require.Empty(t, records)
	require.Zero(t, unread)

	_, err := s.LoadSnapshot(ctx, "notifications:u1")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Empty(t, mirror.Rehydrate(ctx))
}

func TestCenterRetentionOnPersist(t *testing.T) {
	t.Parallel()

	s := testutil.NewTestStore(t)
	ctx := context.Background()

	c := NewCenter(200)
	c.Reset(nil, NewMirror(s, "notifications:u1", 50, nil))
	for i := 0; i < 60; i++ {
		c.Insert(ctx, record(fmt.Sprintf("n-%02d", i), false))
	}
	require.Len(t, c.Notifications(), 60)

	rehydrated := NewMirror(s, "notifications:u1", 50, nil).Rehydrate(ctx)
	require.Len(t, rehydrated, 50)
	require.Equal(t, "n-59", rehydrated[0].ID)
	require.Equal(t, "n-10", rehydrated[49].ID)
	for _, r := range rehydrated {
		require.NotContains(t, []string{"n-00", "n-05", "n-09"}, r.ID)
	}
}

func TestCenterRehydrateRoundTrip(t *testing.T) {
	t.Parallel()

	s := testutil.NewTestStore(t)
	ctx := context.Background()

	c := NewCenter(0)
	c.Reset(nil, NewMirror(s, "notifications:u1", 50, nil))
	for i := 0; i < 7; i++ {
		rec := record(fmt.Sprintf("n-%d", i), false)
		rec.Payload = []byte(fmt.Sprintf(`{"seq":%d}`, i))
		rec.Link = "/buyer/documents"
		c.Insert(ctx, rec)
	}
	c.MarkAsRead(ctx, "n-2")
	c.MarkAsRead(ctx, "n-5")
	want := c.Notifications()

	restored := NewCenter(0)
	mirror := NewMirror(s, "notifications:u1", 50, nil)
	restored.Reset(mirror.Rehydrate(ctx), mirror)

	records, unread := restored.Snapshot()
	require.Equal(t, want, records)
	require.Equal(t, 5, unread)
}

func TestCenterPersistFailureKeepsMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mirror := NewMirror(failingStore{}, "notifications:u1", 50, nil)

	c := NewCenter(0)
	c.Reset(nil, mirror)
	require.True(t, c.Insert(ctx, record("a", false)))
	require.Equal(t, 1, c.UnreadCount())

	err := mirror.Persist(ctx, c.Notifications())
	require.True(t, IsPersistenceWriteError(err))
	require.ErrorIs(t, err, errDiskFull)

	c.Clear(ctx)
	require.Empty(t, c.Notifications())
}

func TestCenterSubscribe(t *testing.T) {
	t.Parallel()

	c := NewCenter(0)
	changes, unsubscribe := c.Subscribe()

	c.Insert(context.Background(), record("a", false))
	select {
	case <-changes:
	default:
		t.Fatal("expected a change signal")
	}

	unsubscribe()
	unsubscribe()
	c.Insert(context.Background(), record("b", false))
	select {
	case <-changes:
		t.Fatal("unexpected signal after unsubscribe")
	default:
	}
}

func TestCenterResetRecomputesUnread(t *testing.T) {
	t.Parallel()

	c := NewCenter(0)
	c.Reset([]model.Notification{
		record("a", true),
		record("b", false),
		record("b", false), // duplicate in a hand-edited snapshot
		record("c", false),
	}, nil)

	records, unread := c.Snapshot()
	require.Equal(t, []string{"a", "b", "c"}, ids(records))
	require.Equal(t, 2, unread)
}
