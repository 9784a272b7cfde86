package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived counts realtime events by wire name.
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifcenter_events_received_total",
			Help: "Realtime events received, by event name",
		},
		[]string{"event"},
	)

	// EventsRejected counts events dropped before normalization.
	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifcenter_events_rejected_total",
			Help: "Realtime events dropped before normalization, by event name and reason",
		},
		[]string{"event", "reason"}, // reason: malformed, unknown, stale
	)

	// NotificationsInserted counts records accepted by the notification center.
	NotificationsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifcenter_notifications_inserted_total",
			Help: "Notifications inserted into the center, by category",
		},
		[]string{"category"},
	)

	// DuplicatesSkipped counts inserts rejected because the ID was present.
	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifcenter_duplicates_skipped_total",
			Help: "Notifications skipped because their ID was already present",
		},
	)

	// PersistenceFailures counts snapshot reads and writes that failed.
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifcenter_persistence_failures_total",
			Help: "Snapshot operations that failed, by operation",
		},
		[]string{"op"}, // op: read, write, erase
	)

	// ConnectionTransitions counts realtime connection state changes.
	ConnectionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifcenter_connection_transitions_total",
			Help: "Realtime connection state transitions, by target state",
		},
		[]string{"state"},
	)
)

// RecordEventReceived increments the received counter for an event.
func RecordEventReceived(event string) {
	EventsReceived.WithLabelValues(event).Inc()
}

// RecordEventRejected increments the rejected counter for an event.
func RecordEventRejected(event, reason string) {
	EventsRejected.WithLabelValues(event, reason).Inc()
}

// RecordInserted increments the inserted counter for a category.
func RecordInserted(category string) {
	NotificationsInserted.WithLabelValues(category).Inc()
}

// RecordPersistenceFailure increments the failure counter for an operation.
func RecordPersistenceFailure(op string) {
	PersistenceFailures.WithLabelValues(op).Inc()
}

// RecordTransition increments the transition counter for a state.
func RecordTransition(state string) {
	ConnectionTransitions.WithLabelValues(state).Inc()
}
