package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by LoadSnapshot when no entry exists under the
// requested name.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore defines durable storage for named notification snapshots.
// A snapshot is an opaque JSON document; the store never interprets it.
// Writers are last-writer-wins.
type SnapshotStore interface {
	// LoadSnapshot returns the payload stored under name, or ErrNotFound.
	LoadSnapshot(ctx context.Context, name string) ([]byte, error)

	// SaveSnapshot replaces the payload stored under name.
	SaveSnapshot(ctx context.Context, name string, payload []byte) error

	// DeleteSnapshot removes the entry. Deleting a missing entry is not an error.
	DeleteSnapshot(ctx context.Context, name string) error

	// Close releases the underlying connection.
	Close() error
}
