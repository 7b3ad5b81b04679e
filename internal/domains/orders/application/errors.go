package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

// Error taxonomy surfaced to adapters. Every error returned by Service
// matches exactly one of these with errors.Is.
var (
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrInvalidInput      = errors.New("invalid order input")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrConflict          = errors.New("conflicting concurrent operation")
	ErrRender            = errors.New("invoice rendering failed")
	ErrTimeout           = errors.New("operation timed out")
	ErrStorage           = errors.New("storage failure")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isTaxonomy(err):
		return err
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, domain.ErrAdminInvoiceMissing),
		errors.Is(err, ports.ErrBlobNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, domain.ErrAutoInvoiceExists),
		errors.Is(err, domain.ErrDuplicatePayment),
		errors.Is(err, ports.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case errors.Is(err, domain.ErrInvoiceInProgress),
		errors.Is(err, domain.ErrInvoiceNotAllowed),
		errors.Is(err, domain.ErrReservationInvalidated),
		errors.Is(err, ports.ErrVersionConflict),
		errors.Is(err, ports.ErrIdempotencyConflict),
		errors.Is(err, ports.ErrLockNotAcquired):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, domain.ErrMissingOrderID),
		errors.Is(err, domain.ErrMissingCustomer),
		errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrInvalidPricing),
		errors.Is(err, domain.ErrInvalidFraudScore),
		errors.Is(err, domain.ErrMissingPaymentMethod),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrEmptyNote),
		errors.Is(err, domain.ErrMissingNoteAuthor),
		errors.Is(err, domain.ErrInvalidShippingEvent),
		errors.Is(err, domain.ErrInvalidPaymentAttempt),
		errors.Is(err, domain.ErrInvalidInvoiceKind),
		errors.Is(err, domain.ErrInvalidInvoiceNumber),
		errors.Is(err, domain.ErrMissingUploader),
		errors.Is(err, domain.ErrMissingBlob):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func isTaxonomy(err error) bool {
	for _, target := range []error{
		ErrInvalidTransition, ErrInvalidInput, ErrNotFound, ErrAlreadyExists,
		ErrConflict, ErrRender, ErrTimeout, ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
