package domain

import (
	"fmt"
	"strings"
	"time"
)

// Policy holds the configurable parts of the transition table.
type Policy struct {
	// AllowCancelAfterShipment permits shipped -> cancelled.
	AllowCancelAfterShipment bool
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusProcessing, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
}

// AllowedTargets lists the statuses reachable from the given one.
func (p Policy) AllowedTargets(from Status) []Status {
	targets := append([]Status(nil), transitions[from]...)
	if from == StatusShipped && p.AllowCancelAfterShipment {
		targets = append(targets, StatusCancelled)
	}
	return targets
}

// Allowed reports whether from -> to is in the table.
func (p Policy) Allowed(from, to Status) bool {
	for _, target := range p.AllowedTargets(from) {
		if target == to {
			return true
		}
	}
	return false
}

// TransitionRequest is a requested status change.
type TransitionRequest struct {
	Target         Status
	Carrier        string
	TrackingNumber string
	Reason         string
	Notes          string
	Actor          string
	Notify         bool
}

// TransitionResult describes an accepted transition.
type TransitionResult struct {
	From  Status
	To    Status
	Event TimelineEvent
}

// Transition validates the request against the policy and, when accepted,
// applies it together with its timeline entry. Rejected requests leave the
// order untouched.
func (o *Order) Transition(policy Policy, req TransitionRequest, now time.Time) (TransitionResult, error) {
	from := o.status
	if from.Terminal() {
		return TransitionResult{}, &TransitionError{From: from, To: req.Target, Reason: "order is in a terminal status"}
	}
	if !req.Target.Valid() {
		return TransitionResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Target)
	}
	if !policy.Allowed(from, req.Target) {
		return TransitionResult{}, &TransitionError{From: from, To: req.Target}
	}

	carrier := strings.TrimSpace(req.Carrier)
	tracking := strings.TrimSpace(req.TrackingNumber)
	reason := strings.TrimSpace(req.Reason)
	switch req.Target {
	case StatusShipped:
		if carrier == "" || tracking == "" {
			return TransitionResult{}, &TransitionError{From: from, To: req.Target, Reason: "carrier and tracking number are required"}
		}
	case StatusCancelled:
		if reason == "" {
			return TransitionResult{}, &TransitionError{From: from, To: req.Target, Reason: "a cancellation reason is required"}
		}
	}

	now = now.UTC()
	metadata := map[string]string{
		"from_status": string(from),
		"to_status":   string(req.Target),
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		metadata["notes"] = notes
	}

	kind := EventStatusUpdated
	message := fmt.Sprintf("Status changed from %s to %s", from, req.Target)
	switch req.Target {
	case StatusShipped:
		kind = EventOrderShipped
		o.shipping.assign(carrier, tracking, now)
		o.shippedAt = &now
		metadata["carrier"] = carrier
		metadata["tracking_number"] = tracking
		message = fmt.Sprintf("Order shipped with %s (%s)", carrier, tracking)
	case StatusDelivered:
		kind = EventOrderDelivered
		if o.deliveredAt == nil {
			o.deliveredAt = &now
		}
		message = "Order delivered"
	case StatusCancelled:
		kind = EventOrderCancelled
		o.cancelReason = reason
		o.invoices.reservation = nil
		metadata["reason"] = reason
		message = "Order cancelled: " + reason
	case StatusRefunded:
		kind = EventRefundProcessed
		o.payment.Status = PaymentStatusRefunded
		message = "Refund processed"
	}
	o.status = req.Target

	event := o.timeline.append(TimelineEvent{
		Kind:       kind,
		Message:    message,
		Actor:      req.Actor,
		Metadata:   metadata,
		OccurredAt: now,
	})
	o.touch(now)
	o.record(StatusChanged{
		BaseEvent: o.base(now),
		From:      from,
		To:        req.Target,
		Kind:      kind,
		Actor:     req.Actor,
		Notify:    req.Notify,
	})
	return TransitionResult{From: from, To: req.Target, Event: event}, nil
}
