package notification

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/metrics"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/store"
)

// Mirror keeps one named snapshot entry in sync with a Center.
type Mirror struct {
	snapshots store.SnapshotStore
	key       string
	retention int
	logger    *zap.Logger
}

// NewMirror returns a Mirror writing at most retention records under key.
func NewMirror(snapshots store.SnapshotStore, key string, retention int, logger *zap.Logger) *Mirror {
	if retention <= 0 {
		retention = model.DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		snapshots: snapshots,
		key:       key,
		retention: retention,
		logger:    logger.With(zap.String("snapshot", key)),
	}
}

// Key returns the snapshot entry name.
func (m *Mirror) Key() string {
	return m.key
}

// Persist writes the newest records, up to the retention cap, as the
// snapshot. records must be ordered newest first.
func (m *Mirror) Persist(ctx context.Context, records []model.Notification) error {
	if len(records) > m.retention {
		records = records[:m.retention]
	}
	if records == nil {
		records = []model.Notification{}
	}

	payload, err := json.Marshal(records)
	if err == nil {
		err = m.snapshots.SaveSnapshot(ctx, m.key, payload)
	}
	if err != nil {
		werr := &PersistenceWriteError{Key: m.key, Err: err}
		metrics.RecordPersistenceFailure("write")
		m.logger.Warn("Skipping notification snapshot write", zap.Error(werr))
		return werr
	}
	return nil
}

// Erase deletes the snapshot entry.
func (m *Mirror) Erase(ctx context.Context) error {
	if err := m.snapshots.DeleteSnapshot(ctx, m.key); err != nil {
		werr := &PersistenceWriteError{Key: m.key, Err: err}
		metrics.RecordPersistenceFailure("erase")
		m.logger.Warn("Failed to erase notification snapshot", zap.Error(werr))
		return werr
	}
	return nil
}

// Load reads the snapshot. A missing entry yields no records and no error;
// an unreadable one yields a *PersistenceReadError.
func (m *Mirror) Load(ctx context.Context) ([]model.Notification, error) {
	payload, err := m.snapshots.LoadSnapshot(ctx, m.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceReadError{Key: m.key, Err: err}
	}

	var records []model.Notification
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, &PersistenceReadError{Key: m.key, Err: err}
	}
	if len(records) > m.retention {
		records = records[:m.retention]
	}
	return records, nil
}

// Rehydrate loads the snapshot for startup. Read failures are logged and
// treated as an empty history; they never fail startup.
func (m *Mirror) Rehydrate(ctx context.Context) []model.Notification {
	records, err := m.Load(ctx)
	if err != nil {
		metrics.RecordPersistenceFailure("read")
		m.logger.Warn("Ignoring unreadable notification snapshot", zap.Error(err))
		return nil
	}

	m.logger.Debug("Rehydrated notification snapshot", zap.Int("records", len(records)))
	return records
}
