package domain

import (
	"strings"
	"time"
)

// ShippingEvent is a carrier scan or status update.
type ShippingEvent struct {
	Label       string
	Description string
	Location    string
	OccurredAt  time.Time
}

// ShippingTracker holds the carrier assignment and the shipping event log.
type ShippingTracker struct {
	carrier        string
	trackingNumber string
	assignedAt     *time.Time
	events         []ShippingEvent
}

func (s ShippingTracker) Carrier() string        { return s.carrier }
func (s ShippingTracker) TrackingNumber() string { return s.trackingNumber }
func (s ShippingTracker) AssignedAt() *time.Time { return cloneTime(s.assignedAt) }

// Assigned reports whether a carrier and tracking number are set.
func (s ShippingTracker) Assigned() bool {
	return s.carrier != "" && s.trackingNumber != ""
}

// Events returns the shipping events in insertion order.
func (s ShippingTracker) Events() []ShippingEvent {
	return append([]ShippingEvent(nil), s.events...)
}

func (s *ShippingTracker) assign(carrier, tracking string, now time.Time) {
	s.carrier = carrier
	s.trackingNumber = tracking
	at := now.UTC()
	s.assignedAt = &at
}

func (s ShippingTracker) clone() ShippingTracker {
	return ShippingTracker{
		carrier:        s.carrier,
		trackingNumber: s.trackingNumber,
		assignedAt:     cloneTime(s.assignedAt),
		events:         s.Events(),
	}
}

// AppendShippingEvent records a carrier event. Events are accepted in any
// order status so late scans are never lost. The timeline is not touched.
func (o *Order) AppendShippingEvent(event ShippingEvent, now time.Time) (ShippingEvent, error) {
	event.Label = strings.TrimSpace(event.Label)
	if event.Label == "" {
		return ShippingEvent{}, ErrInvalidShippingEvent
	}
	now = now.UTC()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	event.OccurredAt = event.OccurredAt.UTC()
	o.shipping.events = append(o.shipping.events, event)

	o.touch(now)
	o.record(ShippingEventAppended{BaseEvent: o.base(now), Label: event.Label})
	return event, nil
}
