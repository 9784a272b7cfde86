package notification

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/kevsands/prop-ie/internal/event"
	"github.com/kevsands/prop-ie/internal/model"
)

// messagePreviewLen is the number of characters of a direct message shown
// in the notification body.
const messagePreviewLen = 50

// idSeq is shared by every Normalizer so synthesized IDs are unique per
// process even when two events arrive within the same millisecond.
var idSeq atomic.Uint64

// Normalizer turns decoded realtime events into notification records.
type Normalizer struct {
	now     func() time.Time
	printer *message.Printer
}

// NewNormalizer returns a Normalizer stamping records with the wall clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		now:     time.Now,
		printer: message.NewPrinter(language.English),
	}
}

// Normalize maps ev to exactly one unread record. Every variant is handled;
// fields were already validated by event.Decode.
func (n *Normalizer) Normalize(ev event.Event) model.Notification {
	now := n.now().UTC()
	rec := model.Notification{
		CreatedAt: now,
		Payload:   ev.Raw(),
	}

	switch e := ev.(type) {
	case event.DocumentUpdate:
		rec.ID = n.newID("doc", now)
		rec.Category = model.CategoryDocument
		rec.Title = "Document Status Update"
		rec.Body = fmt.Sprintf("Your document \"%s\" has been %s.", e.Filename, e.Status)
		rec.Link = "/buyer/documents"

	case event.PaymentUpdate:
		rec.ID = n.newID("payment", now)
		rec.Category = model.CategoryPayment
		rec.Title = "Payment Update"
		rec.Body = fmt.Sprintf("Your payment of €%s has been %s.", n.formatAmount(e.Amount), e.Status)
		rec.Link = "/buyer/financial"

	case event.PropertyUpdate:
		rec.ID = n.newID("property", now)
		rec.Category = model.CategoryProperty
		rec.Title = "Property Status Update"
		rec.Body = fmt.Sprintf("Status update for %s: %s.", e.PropertyName, e.Status)
		rec.Link = "/property/" + e.PropertyID

	case event.Message:
		rec.ID = n.newID("message", now)
		rec.Category = model.CategoryMessage
		rec.Title = "New Message"
		rec.Body = e.SenderName + ": " + preview(e.Text, messagePreviewLen)
		rec.Link = "/messages/" + e.ConversationID

	case event.SystemUpdate:
		rec.ID = n.newID("system", now)
		rec.Category = model.CategorySystem
		rec.Title = e.Title
		if rec.Title == "" {
			rec.Title = "System Update"
		}
		rec.Body = e.Text

	case event.Notification:
		rec.ID = e.ID
		if rec.ID == "" {
			rec.ID = n.newID("notification", now)
		}
		rec.Category = e.Category
		if rec.Category == "" {
			rec.Category = model.CategorySystem
		}
		rec.Title = e.Title
		rec.Body = e.Body
		rec.Read = e.Read
		rec.Link = e.Link
		if !e.CreatedAt.IsZero() {
			rec.CreatedAt = e.CreatedAt.UTC()
		}

	default:
		rec.ID = n.newID("notification", now)
		rec.Category = model.CategorySystem
		rec.Title = string(ev.Name())
	}

	return rec
}

// newID returns "<prefix>-<unix millis>-<seq>".
func (n *Normalizer) newID(prefix string, at time.Time) string {
	seq := idSeq.Add(1)
	return prefix + "-" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + strconv.FormatUint(seq, 10)
}

// formatAmount groups thousands and keeps at most two fraction digits,
// e.g. 5000 -> "5,000" and 1234.5 -> "1,234.5".
func (n *Normalizer) formatAmount(amount float64) string {
	return n.printer.Sprintf("%v", number.Decimal(amount, number.MaxFractionDigits(2)))
}

// preview truncates s to max runes, appending "..." when anything was cut.
func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
