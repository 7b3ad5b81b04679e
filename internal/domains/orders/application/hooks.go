package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

// AutoInvoiceActor identifies invoices generated without a human request.
const AutoInvoiceActor = "system:auto-invoice"

// PostCommitHook reacts to events of a committed change. Implementations
// must not block the caller and must not fail the operation.
type PostCommitHook interface {
	AfterCommit(ctx context.Context, order *domain.Order, events []domain.Event)
}

// HookFunc adapts a function to PostCommitHook.
type HookFunc func(ctx context.Context, order *domain.Order, events []domain.Event)

func (f HookFunc) AfterCommit(ctx context.Context, order *domain.Order, events []domain.Event) {
	f(ctx, order, events)
}

// NotificationHook forwards customer facing events to a NotificationSender
// in the background. Send failures are logged and otherwise ignored.
type NotificationHook struct {
	sender  ports.NotificationSender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotificationHook builds the hook. A nil logger discards output.
func NewNotificationHook(sender ports.NotificationSender, logger *slog.Logger) *NotificationHook {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &NotificationHook{sender: sender, logger: logger, timeout: 10 * time.Second}
}

func (h *NotificationHook) AfterCommit(ctx context.Context, order *domain.Order, events []domain.Event) {
	for _, event := range events {
		notification, ok := notificationFor(order, event)
		if !ok {
			continue
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			if err := h.sender.Send(sendCtx, notification); err != nil {
				h.logger.WarnContext(ctx, "order notification failed",
					slog.String("order_id", notification.OrderID),
					slog.String("event", notification.Event),
					slog.Any("error", err))
			}
		}()
	}
}

// Wait blocks until in-flight notifications finish.
func (h *NotificationHook) Wait() { h.wg.Wait() }

func notificationFor(order *domain.Order, event domain.Event) (ports.Notification, bool) {
	n := ports.Notification{
		OrderID:     order.ID(),
		OrderNumber: order.Number(),
		Status:      string(order.Status()),
		OccurredAt:  event.OccurredAt(),
	}
	switch e := event.(type) {
	case domain.StatusChanged:
		if !e.Notify {
			return n, false
		}
		n.Event = string(e.Kind)
		n.Message = fmt.Sprintf("Order %s is now %s", order.Number(), e.To)
		n.Metadata = map[string]string{"from_status": string(e.From), "to_status": string(e.To)}
		if e.To == domain.StatusShipped {
			shipping := order.Shipping()
			n.Metadata["carrier"] = shipping.Carrier()
			n.Metadata["tracking_number"] = shipping.TrackingNumber()
		}
	case domain.PaymentRecorded:
		switch e.Outcome {
		case domain.OutcomeCaptured:
			n.Event = string(domain.EventPaymentCaptured)
			n.Message = fmt.Sprintf("Payment received for order %s", order.Number())
		case domain.OutcomeFailed:
			n.Event = string(domain.EventPaymentFailed)
			n.Message = fmt.Sprintf("Payment for order %s failed", order.Number())
		default:
			return n, false
		}
		n.Metadata = map[string]string{"attempt_id": e.AttemptID}
	case domain.AutoInvoiceGenerated:
		n.Event = "invoice_available"
		n.Message = fmt.Sprintf("Invoice %s is available", e.Number)
		n.Metadata = map[string]string{"invoice_number": e.Number}
	default:
		return n, false
	}
	return n, true
}

// AutoInvoiceHook dispatches auto invoice generation once a payment is captured.
type AutoInvoiceHook struct {
	workflows ports.InvoiceWorkflows
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewAutoInvoiceHook builds the hook. A nil logger discards output.
func NewAutoInvoiceHook(workflows ports.InvoiceWorkflows, logger *slog.Logger) *AutoInvoiceHook {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AutoInvoiceHook{workflows: workflows, logger: logger}
}

func (h *AutoInvoiceHook) AfterCommit(ctx context.Context, order *domain.Order, events []domain.Event) {
	for _, event := range events {
		payment, ok := event.(domain.PaymentRecorded)
		if !ok || payment.Outcome != domain.OutcomeCaptured || !payment.Settled {
			continue
		}
		if _, exists := order.Invoices().Auto(); exists {
			return
		}
		orderID := order.ID()
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			err := h.workflows.GenerateAutoInvoice(ctx, orderID, AutoInvoiceActor)
			if err != nil && !errors.Is(err, ErrAlreadyExists) {
				h.logger.WarnContext(ctx, "auto invoice dispatch failed",
					slog.String("order_id", orderID), slog.Any("error", err))
			}
		}()
		return
	}
}

// Wait blocks until in-flight dispatches finish.
func (h *AutoInvoiceHook) Wait() { h.wg.Wait() }
