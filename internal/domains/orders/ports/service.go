package ports

import (
	"context"
	"time"

	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
)

// Service defines the order use cases exposed to adapters (inbound/driving port).
type Service interface {
	CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, input ordertypes.ListOrdersInput) ([]*domain.Order, error)
	RequestTransition(ctx context.Context, input ordertypes.TransitionInput) (*domain.Order, error)
	AddAdminNote(ctx context.Context, input ordertypes.AdminNoteInput) (*domain.Order, error)
	AppendShippingEvent(ctx context.Context, input ordertypes.ShippingEventInput) (*domain.Order, error)
	RecordPaymentAttempt(ctx context.Context, input ordertypes.PaymentAttemptInput) (*domain.Order, error)

	GenerateAutoInvoice(ctx context.Context, input ordertypes.GenerateInvoiceInput) (domain.AutoInvoice, error)
	UploadAdminInvoice(ctx context.Context, input ordertypes.UploadAdminInvoiceInput) (domain.AdminInvoice, error)
	DeleteAdminInvoice(ctx context.Context, input ordertypes.DeleteAdminInvoiceInput) error
	ListInvoices(ctx context.Context, orderID string) ([]domain.InvoiceReference, error)
	DownloadInvoice(ctx context.Context, input ordertypes.DownloadInvoiceInput) (*ordertypes.InvoiceDownload, error)

	// ExpireReservations clears auto invoice reservations older than maxAge.
	ExpireReservations(ctx context.Context, maxAge time.Duration) (int, error)
}
