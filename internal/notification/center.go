package notification

import (
	"context"
	"sync"

	"github.com/kevsands/prop-ie/internal/metrics"
	"github.com/kevsands/prop-ie/internal/model"
)

// Center owns the ordered notification history of the signed-in user and
// its unread counter. All mutations are serialized and mirrored to durable
// storage before the lock is released, so snapshots follow mutation order.
type Center struct {
	mu          sync.Mutex
	records     []model.Notification // newest first
	ids         map[string]struct{}
	unread      int
	memoryLimit int
	mirror      *Mirror

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// NewCenter returns an empty Center keeping at most memoryLimit records in
// memory. A non-positive limit disables eviction.
func NewCenter(memoryLimit int) *Center {
	return &Center{
		ids:         make(map[string]struct{}),
		memoryLimit: memoryLimit,
		subs:        make(map[int]chan struct{}),
	}
}

// Reset replaces the whole history, e.g. after rehydrating a snapshot for
// a new identity, and attaches mirror for subsequent mutations. A nil
// mirror disables persistence. The unread counter is recomputed from the
// records' read flags.
func (c *Center) Reset(records []model.Notification, mirror *Mirror) {
	c.mu.Lock()
	c.records = c.records[:0:0]
	c.ids = make(map[string]struct{}, len(records))
	c.unread = 0
	for _, rec := range records {
		if _, dup := c.ids[rec.ID]; dup {
			continue
		}
		if c.memoryLimit > 0 && len(c.records) == c.memoryLimit {
			break
		}
		c.ids[rec.ID] = struct{}{}
		c.records = append(c.records, rec)
		if !rec.Read {
			c.unread++
		}
	}
	c.mirror = mirror
	c.mu.Unlock()

	c.notify()
}

// Insert prepends rec. It reports false, leaving the history untouched,
// when a record with the same ID is already present.
func (c *Center) Insert(ctx context.Context, rec model.Notification) bool {
	c.mu.Lock()
	if _, dup := c.ids[rec.ID]; dup {
		c.mu.Unlock()
		metrics.DuplicatesSkipped.Inc()
		return false
	}

	records := make([]model.Notification, 0, len(c.records)+1)
	records = append(records, rec)
	records = append(records, c.records...)
	c.records = records
	c.ids[rec.ID] = struct{}{}
	if !rec.Read {
		c.unread++
	}

	if c.memoryLimit > 0 && len(c.records) > c.memoryLimit {
		for _, evicted := range c.records[c.memoryLimit:] {
			delete(c.ids, evicted.ID)
			if !evicted.Read {
				c.unread--
			}
		}
		c.records = c.records[:c.memoryLimit:c.memoryLimit]
	}

	c.persistLocked(ctx)
	c.mu.Unlock()

	metrics.RecordInserted(string(rec.Category))
	c.notify()
	return true
}

// MarkAsRead marks the record with the given ID as read. Unknown IDs and
// records that are already read are left alone; it reports whether
// anything changed.
func (c *Center) MarkAsRead(ctx context.Context, id string) bool {
	c.mu.Lock()
	changed := false
	for i := range c.records {
		if c.records[i].ID != id {
			continue
		}
		if !c.records[i].Read {
			c.records[i].Read = true
			if c.unread > 0 {
				c.unread--
			}
			changed = true
		}
		break
	}
	if changed {
		c.persistLocked(ctx)
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return changed
}

// MarkAllAsRead marks every record as read.
func (c *Center) MarkAllAsRead(ctx context.Context) {
	c.mu.Lock()
	for i := range c.records {
		c.records[i].Read = true
	}
	c.unread = 0
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify()
}

// Clear drops the whole history and erases the durable snapshot.
func (c *Center) Clear(ctx context.Context) {
	c.mu.Lock()
	c.records = nil
	c.ids = make(map[string]struct{})
	c.unread = 0
	if c.mirror != nil {
		if err := c.mirror.Erase(ctx); err != nil {
			// Fall back to an empty snapshot so rehydration yields nothing.
			_ = c.mirror.Persist(ctx, nil)
		}
	}
	c.mu.Unlock()

	c.notify()
}

// Notifications returns a copy of the history, newest first.
func (c *Center) Notifications() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, len(c.records))
	copy(out, c.records)
	return out
}

// UnreadCount returns the number of unread records.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// Snapshot returns the history and unread counter read in one step.
func (c *Center) Snapshot() ([]model.Notification, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, len(c.records))
	copy(out, c.records)
	return out, c.unread
}

// Subscribe returns a channel that receives a signal after every change.
// Signals are coalesced; readers should re-read state rather than count
// them. The returned function unsubscribes.
func (c *Center) Subscribe() (<-chan struct{}, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// persistLocked writes the current history through the mirror. Failures
// are logged by the mirror and otherwise ignored. c.mu must be held.
func (c *Center) persistLocked(ctx context.Context) {
	if c.mirror == nil {
		return
	}
	_ = c.mirror.Persist(ctx, c.records)
}

func (c *Center) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
