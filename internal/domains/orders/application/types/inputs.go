package types

import (
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
)

// ItemInput is one requested order line.
type ItemInput struct {
	SKU       string
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// CreateOrderInput carries the data needed to place an order.
type CreateOrderInput struct {
	CustomerID     string
	Items          []ItemInput
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	ShippingMethod string
	ShippingCost   decimal.Decimal
	PaymentMethod  string
	FraudScore     int
	RiskFlags      []string
	Actor          string
	// IdempotencyKey is optional; retries with the same key and payload replay the first result.
	IdempotencyKey string
}

// ListOrdersInput filters the order listing. Empty Status means any.
type ListOrdersInput struct {
	Status string
	Limit  int
}

// TransitionInput requests a status change.
type TransitionInput struct {
	OrderID        string
	Status         string
	Carrier        string
	TrackingNumber string
	Reason         string
	Notes          string
	Notify         bool
	Actor          string
}

// AdminNoteInput attaches a staff note to an order.
type AdminNoteInput struct {
	OrderID string
	Text    string
	Author  string
}

// ShippingEventInput is a carrier webhook payload.
type ShippingEventInput struct {
	OrderID     string
	Label       string
	Description string
	Location    string
	OccurredAt  time.Time
}

// PaymentAttemptInput is a payment gateway callback.
type PaymentAttemptInput struct {
	OrderID       string
	AttemptID     string
	Gateway       string
	Reference     string
	Amount        decimal.Decimal
	Outcome       string
	FailureReason string
	AttemptedAt   time.Time
	Actor         string
}

// GenerateInvoiceInput requests the auto-generated invoice.
type GenerateInvoiceInput struct {
	OrderID string
	Actor   string
}

// UploadAdminInvoiceInput carries an uploaded PDF.
type UploadAdminInvoiceInput struct {
	OrderID       string
	InvoiceNumber string
	Notes         string
	FileName      string
	UploadedBy    string
	Data          []byte
}

// DeleteAdminInvoiceInput clears the admin invoice slot.
type DeleteAdminInvoiceInput struct {
	OrderID string
	Actor   string
}

// DownloadInvoiceInput selects which invoice to stream.
type DownloadInvoiceInput struct {
	OrderID string
	Kind    string
}

// InvoiceDownload is a stored invoice document. Callers must close Content.
type InvoiceDownload struct {
	Reference domain.InvoiceReference
	Content   io.ReadCloser
}
