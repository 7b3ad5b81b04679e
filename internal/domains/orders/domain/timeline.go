package domain

import "time"

// EventKind is the closed vocabulary of timeline entries.
type EventKind string

const (
	EventOrderCreated     EventKind = "order_created"
	EventStatusUpdated    EventKind = "status_updated"
	EventOrderShipped     EventKind = "order_shipped"
	EventOrderDelivered   EventKind = "order_delivered"
	EventOrderCancelled   EventKind = "order_cancelled"
	EventRefundProcessed  EventKind = "refund_processed"
	EventPaymentAttempted EventKind = "payment_attempted"
	EventPaymentCaptured  EventKind = "payment_captured"
	EventPaymentFailed    EventKind = "payment_failed"
	EventAdminNoteAdded   EventKind = "admin_note_added"
)

// Valid reports whether the kind belongs to the vocabulary.
func (k EventKind) Valid() bool {
	switch k {
	case EventOrderCreated, EventStatusUpdated, EventOrderShipped, EventOrderDelivered,
		EventOrderCancelled, EventRefundProcessed, EventPaymentAttempted, EventPaymentCaptured,
		EventPaymentFailed, EventAdminNoteAdded:
		return true
	default:
		return false
	}
}

// TimelineEvent is an immutable audit entry.
type TimelineEvent struct {
	Kind       EventKind
	Message    string
	Actor      string
	Metadata   map[string]string
	OccurredAt time.Time
}

// Timeline is append-only; entries are never edited or removed.
type Timeline struct {
	events []TimelineEvent
}

func (t *Timeline) append(e TimelineEvent) TimelineEvent {
	e.Metadata = cloneMetadata(e.Metadata)
	e.OccurredAt = e.OccurredAt.UTC()
	t.events = append(t.events, e)
	return copyEvent(e)
}

// Entries returns a copy of the entries in insertion order.
func (t Timeline) Entries() []TimelineEvent {
	out := make([]TimelineEvent, len(t.events))
	for i, e := range t.events {
		out[i] = copyEvent(e)
	}
	return out
}

// Len returns the number of entries.
func (t Timeline) Len() int { return len(t.events) }

func copyEvent(e TimelineEvent) TimelineEvent {
	e.Metadata = cloneMetadata(e.Metadata)
	return e
}

func cloneMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
