package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
)

// ErrBlobNotFound is returned when a referenced document is missing from storage.
var ErrBlobNotFound = errors.New("invoice document not found")

// Blob is a document to be stored.
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
}

// BlobStore stores invoice documents.
type BlobStore interface {
	Put(ctx context.Context, blob Blob) (domain.BlobRef, error)
	Get(ctx context.Context, ref domain.BlobRef) (io.ReadCloser, error)
	Delete(ctx context.Context, ref domain.BlobRef) error
}

// InvoiceLine is one rendered invoice row.
type InvoiceLine struct {
	SKU       string
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// InvoiceDocument is everything the renderer needs to produce a PDF.
type InvoiceDocument struct {
	InvoiceNumber  string
	OrderNumber    string
	CustomerID     string
	SellerName     string
	IssuedAt       time.Time
	PaymentMethod  string
	ShippingMethod string
	Lines          []InvoiceLine
	Pricing        domain.Pricing
}

// Renderer turns an invoice document into PDF bytes. Implementations must
// return once ctx is done.
type Renderer interface {
	Render(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// InvoiceWorkflows dispatches auto invoice generation outside the request path.
type InvoiceWorkflows interface {
	GenerateAutoInvoice(ctx context.Context, orderID, actor string) error
}
