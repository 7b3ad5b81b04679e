package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	types "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []ports.Notification
	err  error
}

func (r *recordingSender) Send(_ context.Context, n ports.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingSender) Sent() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notification(nil), r.sent...)
}

type inlineWorkflows struct {
	svc *Service
}

func (w inlineWorkflows) GenerateAutoInvoice(ctx context.Context, orderID, actor string) error {
	_, err := w.svc.GenerateAutoInvoice(ctx, types.GenerateInvoiceInput{OrderID: orderID, Actor: actor})
	return err
}

func TestNotificationHook_FailureDoesNotRollBack(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	hook := NewNotificationHook(sender, nil)
	h := newHarness(t, WithHooks(hook))
	order := h.createOrder(t)

	updated, err := h.svc.RequestTransition(context.Background(), types.TransitionInput{
		OrderID: order.ID(), Status: "cancelled", Reason: "customer request", Notify: true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, updated.Status())
	hook.Wait()

	sent := sender.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, string(domain.EventOrderCancelled), sent[0].Event)
	require.Equal(t, "pending", sent[0].Metadata["from_status"])

	stored, err := h.svc.GetOrder(context.Background(), order.ID())
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, stored.Status())
}

func TestNotificationHook_SkipsWhenNotRequested(t *testing.T) {
	sender := &recordingSender{}
	hook := NewNotificationHook(sender, nil)
	h := newHarness(t, WithHooks(hook))
	order := h.createOrder(t)

	_, err := h.svc.RequestTransition(context.Background(), types.TransitionInput{OrderID: order.ID(), Status: "confirmed"})
	require.NoError(t, err)
	_, err = h.svc.AddAdminNote(context.Background(), types.AdminNoteInput{OrderID: order.ID(), Text: "n", Author: "a"})
	require.NoError(t, err)
	hook.Wait()
	require.Empty(t, sender.Sent())
}

func TestNotificationHook_NotRunForRejectedTransition(t *testing.T) {
	sender := &recordingSender{}
	hook := NewNotificationHook(sender, nil)
	h := newHarness(t, WithHooks(hook))
	order := h.createOrder(t)

	_, err := h.svc.RequestTransition(context.Background(), types.TransitionInput{OrderID: order.ID(), Status: "delivered", Notify: true})
	require.ErrorIs(t, err, ErrInvalidTransition)
	hook.Wait()
	require.Empty(t, sender.Sent())
}

func TestAutoInvoiceHook_GeneratesOnCapture(t *testing.T) {
	h := newHarness(t)
	hook := NewAutoInvoiceHook(inlineWorkflows{svc: h.svc}, nil)
	h.svc.AddHook(hook)
	order := h.createOrder(t)

	_, err := h.svc.RecordPaymentAttempt(context.Background(), types.PaymentAttemptInput{
		OrderID: order.ID(), AttemptID: "p-1", Amount: decimal.NewFromInt(29), Outcome: "captured",
	})
	require.NoError(t, err)
	hook.Wait()

	stored, err := h.svc.GetOrder(context.Background(), order.ID())
	require.NoError(t, err)
	auto, ok := stored.Invoices().Auto()
	require.True(t, ok)
	require.Equal(t, AutoInvoiceActor, auto.GeneratedBy)

	_, err = h.svc.RecordPaymentAttempt(context.Background(), types.PaymentAttemptInput{
		OrderID: order.ID(), AttemptID: "p-2", Amount: decimal.NewFromInt(1), Outcome: "captured",
	})
	require.NoError(t, err)
	hook.Wait()
	require.Equal(t, 1, h.renderer.Calls())
}

func TestAutoInvoiceHook_IgnoresFailedPayments(t *testing.T) {
	h := newHarness(t)
	hook := NewAutoInvoiceHook(inlineWorkflows{svc: h.svc}, nil)
	h.svc.AddHook(hook)
	order := h.createOrder(t)

	_, err := h.svc.RecordPaymentAttempt(context.Background(), types.PaymentAttemptInput{
		OrderID: order.ID(), AttemptID: "p-1", Outcome: "failed", FailureReason: "declined",
	})
	require.NoError(t, err)
	hook.Wait()
	require.Equal(t, 0, h.renderer.Calls())
}

func TestAutoInvoiceHook_SkipsCaptureOnCancelledOrder(t *testing.T) {
	h := newHarness(t)
	hook := NewAutoInvoiceHook(inlineWorkflows{svc: h.svc}, nil)
	h.svc.AddHook(hook)
	order := h.createOrder(t)

	_, err := h.svc.RequestTransition(context.Background(), types.TransitionInput{OrderID: order.ID(), Status: "cancelled", Reason: "fraud"})
	require.NoError(t, err)
	updated, err := h.svc.RecordPaymentAttempt(context.Background(), types.PaymentAttemptInput{
		OrderID: order.ID(), AttemptID: "p-late", Amount: decimal.NewFromInt(29), Outcome: "captured",
	})
	require.NoError(t, err)
	hook.Wait()

	require.Equal(t, domain.StatusCancelled, updated.Status())
	require.Equal(t, domain.PaymentStatusPending, updated.Payment().Status)
	require.Equal(t, 0, h.renderer.Calls())
}
