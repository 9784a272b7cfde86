package model

import (
	"encoding/json"
	"time"
)

// Category classifies a notification by the kind of activity it reports.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryPayment  Category = "payment"
	CategoryProperty Category = "property"
	CategoryMessage  Category = "message"
	CategorySystem   Category = "system"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDocument, CategoryPayment, CategoryProperty,
		CategoryMessage, CategorySystem:
		return true
	}
	return false
}

// Notification is the canonical record every inbound event is normalized
// into before it reaches the notification center.
//
// The JSON field names match the snapshot format written by the web
// client, so a snapshot produced by either side can be rehydrated.
type Notification struct {
	// ID is unique within a single in-memory center.
	ID string `json:"id"`

	// Category is fixed by the event that produced the record.
	Category Category `json:"type"`

	// Title is the short display heading.
	Title string `json:"title"`

	// Body is the human-readable notification text.
	Body string `json:"message"`

	// CreatedAt is assigned at normalization time.
	CreatedAt time.Time `json:"timestamp"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// Link is an optional deep-link target.
	Link string `json:"link,omitempty"`

	// Payload is the original event data, passed through untouched.
	Payload json.RawMessage `json:"data,omitempty"`
}
