package domain

import (
	"fmt"
	"strings"
	"time"
)

// InvoiceKind distinguishes the two invoice slots of an order.
type InvoiceKind string

const (
	InvoiceKindAuto  InvoiceKind = "auto_generated"
	InvoiceKindAdmin InvoiceKind = "admin_uploaded"
)

// AutoInvoicePrefix is reserved for system generated invoice numbers.
const AutoInvoicePrefix = "INV-AUTO-"

// ParseInvoiceKind accepts the canonical names and the short forms "auto" and "admin".
func ParseInvoiceKind(raw string) (InvoiceKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "auto", string(InvoiceKindAuto):
		return InvoiceKindAuto, nil
	case "admin", string(InvoiceKindAdmin):
		return InvoiceKindAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInvoiceKind, raw)
	}
}

// AutoInvoiceNumber derives the auto invoice number from the order number.
// The same order always yields the same number.
func AutoInvoiceNumber(orderNumber string) string {
	return AutoInvoicePrefix + strings.TrimPrefix(orderNumber, OrderNumberPrefix)
}

// BlobRef points at a stored invoice document.
type BlobRef struct {
	Key         string
	ContentType string
	Size        int64
	Checksum    string
}

// InvoiceReference is implemented by AutoInvoice and AdminInvoice only.
type InvoiceReference interface {
	Kind() InvoiceKind
	InvoiceNumber() string
	IssuedAt() time.Time
	Blob() BlobRef
	isInvoiceReference()
}

// AutoInvoice is the system generated invoice. Once set it is never replaced.
type AutoInvoice struct {
	Number      string
	GeneratedAt time.Time
	GeneratedBy string
	Document    BlobRef
}

func (a AutoInvoice) Kind() InvoiceKind     { return InvoiceKindAuto }
func (a AutoInvoice) InvoiceNumber() string { return a.Number }
func (a AutoInvoice) IssuedAt() time.Time   { return a.GeneratedAt }
func (a AutoInvoice) Blob() BlobRef         { return a.Document }
func (AutoInvoice) isInvoiceReference()     {}

// AdminInvoice is a manually uploaded invoice. It can be replaced or removed.
type AdminInvoice struct {
	Number     string
	UploadedAt time.Time
	UploadedBy string
	FileName   string
	Notes      string
	Document   BlobRef
}

func (a AdminInvoice) Kind() InvoiceKind     { return InvoiceKindAdmin }
func (a AdminInvoice) InvoiceNumber() string { return a.Number }
func (a AdminInvoice) IssuedAt() time.Time   { return a.UploadedAt }
func (a AdminInvoice) Blob() BlobRef         { return a.Document }
func (AdminInvoice) isInvoiceReference()     {}

// InvoiceReservation marks an auto invoice generation in flight.
type InvoiceReservation struct {
	Token      string
	ReservedBy string
	ReservedAt time.Time
}

// InvoiceSlots holds the two invoice slots and the auto invoice reservation.
type InvoiceSlots struct {
	auto        *AutoInvoice
	admin       *AdminInvoice
	reservation *InvoiceReservation
}

// Auto returns the auto invoice when present.
func (s InvoiceSlots) Auto() (AutoInvoice, bool) {
	if s.auto == nil {
		return AutoInvoice{}, false
	}
	return *s.auto, true
}

// Admin returns the admin invoice when present.
func (s InvoiceSlots) Admin() (AdminInvoice, bool) {
	if s.admin == nil {
		return AdminInvoice{}, false
	}
	return *s.admin, true
}

// Reservation returns the in-flight reservation when present.
func (s InvoiceSlots) Reservation() (InvoiceReservation, bool) {
	if s.reservation == nil {
		return InvoiceReservation{}, false
	}
	return *s.reservation, true
}

// Get returns the reference stored in the given slot.
func (s InvoiceSlots) Get(kind InvoiceKind) (InvoiceReference, bool) {
	switch kind {
	case InvoiceKindAuto:
		if s.auto != nil {
			return *s.auto, true
		}
	case InvoiceKindAdmin:
		if s.admin != nil {
			return *s.admin, true
		}
	}
	return nil, false
}

// List returns the present references, auto first.
func (s InvoiceSlots) List() []InvoiceReference {
	refs := make([]InvoiceReference, 0, 2)
	if s.auto != nil {
		refs = append(refs, *s.auto)
	}
	if s.admin != nil {
		refs = append(refs, *s.admin)
	}
	return refs
}

func (s InvoiceSlots) clone() InvoiceSlots {
	out := InvoiceSlots{}
	if s.auto != nil {
		v := *s.auto
		out.auto = &v
	}
	if s.admin != nil {
		v := *s.admin
		out.admin = &v
	}
	if s.reservation != nil {
		v := *s.reservation
		out.reservation = &v
	}
	return out
}

// ReserveAutoInvoice claims the auto slot for a generation attempt.
func (o *Order) ReserveAutoInvoice(token, actor string, now time.Time) error {
	if o.invoices.auto != nil {
		return ErrAutoInvoiceExists
	}
	if o.invoices.reservation != nil {
		return ErrInvoiceInProgress
	}
	if o.status == StatusCancelled {
		return fmt.Errorf("%w: order is cancelled", ErrInvoiceNotAllowed)
	}
	if strings.TrimSpace(token) == "" {
		return ErrReservationInvalidated
	}
	o.invoices.reservation = &InvoiceReservation{Token: token, ReservedBy: actor, ReservedAt: now.UTC()}
	return nil
}

// ReleaseAutoInvoice drops the reservation if it is still held by token.
func (o *Order) ReleaseAutoInvoice(token string) bool {
	if o.invoices.reservation == nil || o.invoices.reservation.Token != token {
		return false
	}
	o.invoices.reservation = nil
	return true
}

// ExpireReservation drops a reservation taken before the cutoff.
func (o *Order) ExpireReservation(cutoff time.Time) bool {
	if o.invoices.reservation == nil || !o.invoices.reservation.ReservedAt.Before(cutoff) {
		return false
	}
	o.invoices.reservation = nil
	return true
}

// CommitAutoInvoice fills the auto slot. The token must still hold the reservation.
func (o *Order) CommitAutoInvoice(token string, invoice AutoInvoice, now time.Time) error {
	if o.invoices.reservation == nil || o.invoices.reservation.Token != token {
		return ErrReservationInvalidated
	}
	if o.invoices.auto != nil {
		return ErrAutoInvoiceExists
	}
	if invoice.Number != AutoInvoiceNumber(o.number) {
		return fmt.Errorf("%w: expected %s", ErrInvalidInvoiceNumber, AutoInvoiceNumber(o.number))
	}
	if invoice.Document.Key == "" {
		return ErrMissingBlob
	}
	invoice.GeneratedAt = invoice.GeneratedAt.UTC()
	o.invoices.auto = &invoice
	o.invoices.reservation = nil
	o.touch(now)
	o.record(AutoInvoiceGenerated{BaseEvent: o.base(now.UTC()), Number: invoice.Number})
	return nil
}

// ValidateAdminInvoiceNumber rejects empty numbers and the reserved auto namespace.
func ValidateAdminInvoiceNumber(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidInvoiceNumber)
	}
	if strings.HasPrefix(strings.ToUpper(number), AutoInvoicePrefix) {
		return fmt.Errorf("%w: %s prefix is reserved", ErrInvalidInvoiceNumber, AutoInvoicePrefix)
	}
	return nil
}

// ReplaceAdminInvoice stores a new admin invoice and returns the one it replaced.
func (o *Order) ReplaceAdminInvoice(invoice AdminInvoice, now time.Time) (*AdminInvoice, error) {
	invoice.Number = strings.TrimSpace(invoice.Number)
	if err := ValidateAdminInvoiceNumber(invoice.Number); err != nil {
		return nil, err
	}
	if strings.TrimSpace(invoice.UploadedBy) == "" {
		return nil, ErrMissingUploader
	}
	if invoice.Document.Key == "" {
		return nil, ErrMissingBlob
	}
	previous := o.invoices.admin
	invoice.UploadedAt = invoice.UploadedAt.UTC()
	o.invoices.admin = &invoice
	o.touch(now)
	o.record(AdminInvoiceReplaced{BaseEvent: o.base(now.UTC()), Number: invoice.Number, Replaced: previous != nil})
	return previous, nil
}

// RemoveAdminInvoice clears the admin slot.
func (o *Order) RemoveAdminInvoice(now time.Time) (AdminInvoice, error) {
	if o.invoices.admin == nil {
		return AdminInvoice{}, ErrAdminInvoiceMissing
	}
	removed := *o.invoices.admin
	o.invoices.admin = nil
	o.touch(now)
	o.record(AdminInvoiceRemoved{BaseEvent: o.base(now.UTC()), Number: removed.Number})
	return removed, nil
}
