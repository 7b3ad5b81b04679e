package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

const (
	// GenerateAutoInvoiceActivityName renders and stores the auto invoice of an order.
	GenerateAutoInvoiceActivityName = "orders.activities.GenerateAutoInvoice"

	nonRetryableType = "OrderInvoiceRejected"
)

// GenerateAutoInvoiceInput identifies the order and the actor recorded on the invoice.
type GenerateAutoInvoiceInput struct {
	OrderID string
	Actor   string
}

// GenerateAutoInvoiceResult reports what the activity ended up doing.
type GenerateAutoInvoiceResult struct {
	InvoiceNumber  string
	AlreadyExisted bool
}

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service ordersports.Service
}

// NewActivities wires the order service into the Temporal activities bundle.
// The service must not itself dispatch to Temporal, or generation would loop.
func NewActivities(service ordersports.Service) *Activities {
	return &Activities{service: service}
}

// GenerateAutoInvoice runs the reserve, render and commit cycle. An invoice
// that already exists counts as success.
func (a *Activities) GenerateAutoInvoice(ctx context.Context, input GenerateAutoInvoiceInput) (*GenerateAutoInvoiceResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("auto invoice activity not initialized", "orderId", input.OrderID)
		return nil, errors.New("auto invoice activity not initialized")
	}
	logger.Info("GenerateAutoInvoice activity started", "orderId", input.OrderID)
	invoice, err := a.service.GenerateAutoInvoice(ctx, ordertypes.GenerateInvoiceInput{OrderID: input.OrderID, Actor: input.Actor})
	switch {
	case err == nil:
		logger.Info("GenerateAutoInvoice activity completed", "orderId", input.OrderID, "invoiceNumber", invoice.Number)
		return &GenerateAutoInvoiceResult{InvoiceNumber: invoice.Number}, nil
	case errors.Is(err, ordersapp.ErrAlreadyExists):
		logger.Info("auto invoice already present; skipping", "orderId", input.OrderID)
		return &GenerateAutoInvoiceResult{AlreadyExisted: true}, nil
	case errors.Is(err, domain.ErrInvoiceNotAllowed),
		errors.Is(err, ordersapp.ErrNotFound),
		errors.Is(err, ordersapp.ErrInvalidInput):
		logger.Warn("GenerateAutoInvoice rejected", "orderId", input.OrderID, "error", err)
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), nonRetryableType, err)
	default:
		logger.Error("GenerateAutoInvoice activity failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}
}
