package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kevsands/prop-ie/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestRedis starts an in-process Redis server and returns a client
// connected to it. Both are torn down when the test completes.
func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
	})

	return mr, client
}
