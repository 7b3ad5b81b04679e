package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingOrderID        = errors.New("order id is required")
	ErrMissingCustomer       = errors.New("customer id is required")
	ErrNoItems               = errors.New("order must contain at least one item")
	ErrInvalidItem           = errors.New("order item is invalid")
	ErrInvalidPricing        = errors.New("order pricing is invalid")
	ErrInvalidFraudScore     = errors.New("fraud score must be between 0 and 100")
	ErrMissingPaymentMethod  = errors.New("payment method is required")
	ErrInvalidStatus         = errors.New("order status is invalid")
	ErrInvalidTransition     = errors.New("order status transition is not allowed")
	ErrInvalidEventKind      = errors.New("timeline event kind is invalid")
	ErrEmptyNote             = errors.New("admin note must not be empty")
	ErrMissingNoteAuthor     = errors.New("admin note author is required")
	ErrInvalidShippingEvent  = errors.New("shipping event is invalid")
	ErrInvalidPaymentAttempt = errors.New("payment attempt is invalid")
	ErrDuplicatePayment      = errors.New("payment attempt already recorded")
)

var (
	ErrInvalidInvoiceKind     = errors.New("invoice kind is invalid")
	ErrAutoInvoiceExists      = errors.New("auto-generated invoice already exists")
	ErrInvoiceInProgress      = errors.New("auto-generated invoice is already being generated")
	ErrInvoiceNotAllowed      = errors.New("invoice cannot be generated for this order")
	ErrReservationInvalidated = errors.New("invoice reservation is no longer valid")
	ErrAdminInvoiceMissing    = errors.New("admin invoice not found")
	ErrInvalidInvoiceNumber   = errors.New("invoice number is invalid")
	ErrMissingUploader        = errors.New("invoice uploader is required")
	ErrMissingBlob            = errors.New("invoice document reference is required")
)

// TransitionError reports a rejected status change together with the
// status the order was in and the status that was requested.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets callers match the error against ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
