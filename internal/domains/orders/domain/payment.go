package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus summarises the payment side of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// AttemptOutcome is the result a gateway reported for a payment attempt.
type AttemptOutcome string

const (
	OutcomeAttempted AttemptOutcome = "attempted"
	OutcomeCaptured  AttemptOutcome = "captured"
	OutcomeFailed    AttemptOutcome = "failed"
)

// ParseAttemptOutcome normalises raw gateway input.
func ParseAttemptOutcome(raw string) (AttemptOutcome, error) {
	outcome := AttemptOutcome(strings.ToLower(strings.TrimSpace(raw)))
	switch outcome {
	case OutcomeAttempted, OutcomeCaptured, OutcomeFailed:
		return outcome, nil
	default:
		return "", fmt.Errorf("%w: unknown outcome %q", ErrInvalidPaymentAttempt, raw)
	}
}

// PaymentAttempt is one gateway interaction.
type PaymentAttempt struct {
	ID            string
	Gateway       string
	Reference     string
	Amount        decimal.Decimal
	Outcome       AttemptOutcome
	FailureReason string
	AttemptedAt   time.Time
}

// Payment holds the payment method, summary status and attempt ledger.
type Payment struct {
	Method   string
	Status   PaymentStatus
	Attempts []PaymentAttempt
}

func (p Payment) clone() Payment {
	p.Attempts = append([]PaymentAttempt(nil), p.Attempts...)
	return p
}

// PaymentResult reports whether recording the attempt moved the order.
type PaymentResult struct {
	Attempt      PaymentAttempt
	Transitioned bool
	// Settled is set when a capture marked the payment as paid.
	Settled bool
	From    Status
	To      Status
}

// RecordPaymentAttempt appends an attempt to the ledger and emits exactly one
// timeline entry. A capture on a pending order confirms it; that status
// change is carried by the payment_captured entry. Captures arriving after
// the order was cancelled or refunded are kept in the ledger only.
func (o *Order) RecordPaymentAttempt(policy Policy, attempt PaymentAttempt, actor string, now time.Time) (PaymentResult, error) {
	attempt.ID = strings.TrimSpace(attempt.ID)
	if attempt.ID == "" || attempt.Amount.IsNegative() {
		return PaymentResult{}, ErrInvalidPaymentAttempt
	}
	if _, err := ParseAttemptOutcome(string(attempt.Outcome)); err != nil {
		return PaymentResult{}, err
	}
	for _, existing := range o.payment.Attempts {
		if existing.ID == attempt.ID {
			return PaymentResult{}, fmt.Errorf("%w: %s", ErrDuplicatePayment, attempt.ID)
		}
	}
	now = now.UTC()
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = now
	}
	attempt.AttemptedAt = attempt.AttemptedAt.UTC()
	o.payment.Attempts = append(o.payment.Attempts, attempt)

	result := PaymentResult{Attempt: attempt, From: o.status, To: o.status}
	metadata := map[string]string{
		"attempt_id": attempt.ID,
		"amount":     attempt.Amount.StringFixed(2),
	}
	if attempt.Gateway != "" {
		metadata["gateway"] = attempt.Gateway
	}

	var kind EventKind
	var message string
	switch attempt.Outcome {
	case OutcomeCaptured:
		kind = EventPaymentCaptured
		message = "Payment captured"
		switch {
		case o.status == StatusCancelled || o.status == StatusRefunded:
			metadata["settled"] = "false"
			message = fmt.Sprintf("Payment captured on %s order", o.status)
		case o.payment.Status != PaymentStatusRefunded:
			o.payment.Status = PaymentStatusPaid
			result.Settled = true
		}
		if o.status == StatusPending && policy.Allowed(StatusPending, StatusConfirmed) {
			o.status = StatusConfirmed
			result.Transitioned = true
			result.To = StatusConfirmed
			metadata["from_status"] = string(result.From)
			metadata["to_status"] = string(result.To)
			message = "Payment captured, order confirmed"
		}
	case OutcomeFailed:
		kind = EventPaymentFailed
		message = "Payment failed"
		if attempt.FailureReason != "" {
			metadata["reason"] = attempt.FailureReason
			message += ": " + attempt.FailureReason
		}
		if o.payment.Status == PaymentStatusPending {
			o.payment.Status = PaymentStatusFailed
		}
	default:
		kind = EventPaymentAttempted
		message = "Payment attempted"
	}

	o.timeline.append(TimelineEvent{
		Kind:       kind,
		Message:    message,
		Actor:      actor,
		Metadata:   metadata,
		OccurredAt: now,
	})
	o.touch(now)
	o.record(PaymentRecorded{
		BaseEvent:    o.base(now),
		AttemptID:    attempt.ID,
		Outcome:      attempt.Outcome,
		Transitioned: result.Transitioned,
		Settled:      result.Settled,
		From:         result.From,
		To:           result.To,
	})
	return result, nil
}
