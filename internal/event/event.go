// Package event defines the realtime events pushed to a signed-in user and
// decodes their untyped JSON payloads into typed variants.
//
// Decoding is the only place required fields are checked. A payload that
// decodes successfully carries every field its variant needs, so code that
// consumes an Event never has to guess about missing data.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kevsands/prop-ie/internal/model"
)

// Name is the realtime event name as it appears on the wire.
type Name string

const (
	NameNotification   Name = "notification"
	NameDocumentUpdate Name = "document_update"
	NamePaymentUpdate  Name = "payment_update"
	NamePropertyUpdate Name = "property_update"
	NameMessage        Name = "message"
	NameSystemUpdate   Name = "system_update"
)

// Names lists every event a connection subscribes to.
var Names = []Name{
	NameNotification,
	NameDocumentUpdate,
	NamePaymentUpdate,
	NamePropertyUpdate,
	NameMessage,
	NameSystemUpdate,
}

// Event is one decoded realtime event. The concrete type is one of
// DocumentUpdate, PaymentUpdate, PropertyUpdate, Message, SystemUpdate or
// Notification.
type Event interface {
	// Name returns the wire name of the event.
	Name() Name

	// Raw returns the payload exactly as it was received.
	Raw() json.RawMessage
}

// MalformedError reports an event whose payload is missing a required
// field or carries it with the wrong type.
type MalformedError struct {
	Event Name
	Field string
	Err   error
}

func (e *MalformedError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s event: %v", e.Event, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed %s event: field %q: %v", e.Event, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed %s event: missing field %q", e.Event, e.Field)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err (or any error in its chain) is a
// MalformedError.
func IsMalformed(err error) bool {
	var malformed *MalformedError
	return errors.As(err, &malformed)
}

// ErrUnknownEvent is returned by Decode for event names outside Names.
var ErrUnknownEvent = errors.New("unknown event")

// raw embeds the received payload into every variant.
type raw struct {
	payload json.RawMessage
}

func (r raw) Raw() json.RawMessage { return r.payload }

// DocumentUpdate reports a status change on an uploaded document.
type DocumentUpdate struct {
	raw
	Filename string
	Status   string
}

func (DocumentUpdate) Name() Name { return NameDocumentUpdate }

// PaymentUpdate reports a status change on a payment.
type PaymentUpdate struct {
	raw
	Amount float64
	Status string
}

func (PaymentUpdate) Name() Name { return NamePaymentUpdate }

// PropertyUpdate reports a status change on a property being purchased.
type PropertyUpdate struct {
	raw
	PropertyID   string
	PropertyName string
	Status       string
}

func (PropertyUpdate) Name() Name { return NamePropertyUpdate }

// Message reports a new direct message in a conversation.
type Message struct {
	raw
	SenderName     string
	Text           string
	ConversationID string
}

func (Message) Name() Name { return NameMessage }

// SystemUpdate is a platform-wide notice such as planned maintenance.
type SystemUpdate struct {
	raw
	Title string
	Text  string
}

func (SystemUpdate) Name() Name { return NameSystemUpdate }

// Notification is an already-shaped notification pushed by the server.
// Optional fields are left zero when absent.
type Notification struct {
	raw
	ID        string
	Category  model.Category
	Title     string
	Body      string
	CreatedAt time.Time
	Read      bool
	Link      string
}

func (Notification) Name() Name { return NameNotification }

// Decode parses the payload of the named event into its typed variant.
// It returns a *MalformedError when a required field is missing or has
// the wrong type, and ErrUnknownEvent for unsupported names.
func Decode(name Name, payload json.RawMessage) (Event, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &MalformedError{Event: name, Err: fmt.Errorf("decoding payload: %w", err)}
	}

	d := decoder{name: name, fields: fields}
	r := raw{payload: append(json.RawMessage(nil), payload...)}

	switch name {
	case NameDocumentUpdate:
		ev := DocumentUpdate{raw: r}
		d.requireString("filename", &ev.Filename)
		d.requireString("status", &ev.Status)
		return d.result(ev)

	case NamePaymentUpdate:
		ev := PaymentUpdate{raw: r}
		d.requireNumber("amount", &ev.Amount)
		d.requireString("status", &ev.Status)
		return d.result(ev)

	case NamePropertyUpdate:
		ev := PropertyUpdate{raw: r}
		d.requireString("propertyName", &ev.PropertyName)
		d.requireString("status", &ev.Status)
		d.requireID("propertyId", &ev.PropertyID)
		return d.result(ev)

	case NameMessage:
		ev := Message{raw: r}
		d.requireString("senderName", &ev.SenderName)
		d.requireString("message", &ev.Text)
		d.requireID("conversationId", &ev.ConversationID)
		return d.result(ev)

	case NameSystemUpdate:
		ev := SystemUpdate{raw: r}
		d.requireString("message", &ev.Text)
		d.optionalString(&ev.Title, "title")
		return d.result(ev)

	case NameNotification:
		ev := Notification{raw: r}
		var category string
		d.requireString("title", &ev.Title)
		d.optionalString(&ev.ID, "id")
		d.optionalString(&category, "type", "category")
		ev.Category = model.Category(category)
		if category != "" && !ev.Category.Valid() {
			d.fail("type", fmt.Errorf("unknown category %q", category))
		}
		d.optionalString(&ev.Body, "message", "body")
		d.optionalString(&ev.Link, "link")
		d.optionalBool(&ev.Read, "read")
		d.optionalTime(&ev.CreatedAt, "timestamp", "createdAt")
		return d.result(ev)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// decoder extracts typed fields from a payload, keeping the first error.
type decoder struct {
	name   Name
	fields map[string]json.RawMessage
	err    error
}

func (d *decoder) result(ev Event) (Event, error) {
	if d.err != nil {
		return nil, d.err
	}
	return ev, nil
}

func (d *decoder) fail(field string, err error) {
	if d.err == nil {
		d.err = &MalformedError{Event: d.name, Field: field, Err: err}
	}
}

// lookup returns the raw value of the first present, non-null key.
func (d *decoder) lookup(keys ...string) (string, json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := d.fields[k]
		if ok && string(v) != "null" {
			return k, v, true
		}
	}
	return "", nil, false
}

func (d *decoder) requireString(key string, dst *string) {
	v, ok := d.fields[key]
	if !ok || string(v) == "null" {
		d.fail(key, nil)
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.fail(key, errors.New("expected a string"))
	}
}

func (d *decoder) requireNumber(key string, dst *float64) {
	v, ok := d.fields[key]
	if !ok || string(v) == "null" {
		d.fail(key, nil)
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.fail(key, errors.New("expected a number"))
	}
}

// requireID accepts an identifier sent either as a string or a number.
func (d *decoder) requireID(key string, dst *string) {
	v, ok := d.fields[key]
	if !ok || string(v) == "null" {
		d.fail(key, nil)
		return
	}
	if err := json.Unmarshal(v, dst); err == nil {
		return
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		d.fail(key, errors.New("expected a string or number"))
		return
	}
	*dst = n.String()
}

func (d *decoder) optionalString(dst *string, keys ...string) {
	key, v, ok := d.lookup(keys...)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.fail(key, errors.New("expected a string"))
	}
}

func (d *decoder) optionalBool(dst *bool, keys ...string) {
	key, v, ok := d.lookup(keys...)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.fail(key, errors.New("expected a boolean"))
	}
}

func (d *decoder) optionalTime(dst *time.Time, keys ...string) {
	key, v, ok := d.lookup(keys...)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.fail(key, errors.New("expected an RFC 3339 timestamp"))
	}
}
