package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
	OrderID() string
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Order     string
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// OrderID returns the order the event belongs to.
func (e BaseEvent) OrderID() string { return e.Order }

// OrderCreated is raised when an order is placed.
type OrderCreated struct {
	BaseEvent
	Number string
	Total  decimal.Decimal
}

func (OrderCreated) EventName() string { return "orders.order.created" }

// StatusChanged is raised for every accepted transition.
type StatusChanged struct {
	BaseEvent
	From   Status
	To     Status
	Kind   EventKind
	Actor  string
	Notify bool
}

func (StatusChanged) EventName() string { return "orders.order.status_changed" }

// PaymentRecorded is raised when a payment attempt is appended.
type PaymentRecorded struct {
	BaseEvent
	AttemptID    string
	Outcome      AttemptOutcome
	Transitioned bool
	Settled      bool
	From         Status
	To           Status
}

func (PaymentRecorded) EventName() string { return "orders.payment.recorded" }

// AdminNoteAdded is raised when staff annotate an order.
type AdminNoteAdded struct {
	BaseEvent
	Author string
}

func (AdminNoteAdded) EventName() string { return "orders.note.added" }

// ShippingEventAppended is raised for each carrier event.
type ShippingEventAppended struct {
	BaseEvent
	Label string
}

func (ShippingEventAppended) EventName() string { return "orders.shipping.event_appended" }

// AutoInvoiceGenerated is raised when the auto slot is filled.
type AutoInvoiceGenerated struct {
	BaseEvent
	Number string
}

func (AutoInvoiceGenerated) EventName() string { return "orders.invoice.auto_generated" }

// AdminInvoiceReplaced is raised when an admin invoice is uploaded.
type AdminInvoiceReplaced struct {
	BaseEvent
	Number   string
	Replaced bool
}

func (AdminInvoiceReplaced) EventName() string { return "orders.invoice.admin_uploaded" }

// AdminInvoiceRemoved is raised when the admin slot is cleared.
type AdminInvoiceRemoved struct {
	BaseEvent
	Number string
}

func (AdminInvoiceRemoved) EventName() string { return "orders.invoice.admin_removed" }
