package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAutoInvoiceNumber_IsDeterministic(t *testing.T) {
	require.Equal(t, "INV-AUTO-1001", AutoInvoiceNumber("ORD-1001"))
	require.Equal(t, AutoInvoiceNumber("ORD-1001"), AutoInvoiceNumber("ORD-1001"))
}

func TestAutoInvoice_ReserveCommitLifecycle(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.ReserveAutoInvoice("tok-1", "admin-1", fixedNow))
	require.ErrorIs(t, order.ReserveAutoInvoice("tok-2", "admin-2", fixedNow), ErrInvoiceInProgress)

	err := order.CommitAutoInvoice("tok-2", AutoInvoice{Number: "INV-AUTO-1001", Document: BlobRef{Key: "k"}}, fixedNow)
	require.ErrorIs(t, err, ErrReservationInvalidated)

	err = order.CommitAutoInvoice("tok-1", AutoInvoice{Number: "INV-AUTO-1001", GeneratedAt: fixedNow, Document: BlobRef{Key: "k"}}, fixedNow)
	require.NoError(t, err)

	auto, ok := order.Invoices().Auto()
	require.True(t, ok)
	require.Equal(t, "INV-AUTO-1001", auto.Number)
	_, held := order.Invoices().Reservation()
	require.False(t, held)

	require.ErrorIs(t, order.ReserveAutoInvoice("tok-3", "admin-1", fixedNow), ErrAutoInvoiceExists)
}

func TestAutoInvoice_ReleaseOnlyWithMatchingToken(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.ReserveAutoInvoice("tok-1", "admin-1", fixedNow))

	require.False(t, order.ReleaseAutoInvoice("other"))
	require.True(t, order.ReleaseAutoInvoice("tok-1"))
	require.NoError(t, order.ReserveAutoInvoice("tok-2", "admin-1", fixedNow))
}

func TestAutoInvoice_RejectedForCancelledOrder(t *testing.T) {
	order := orderInStatus(t, StatusCancelled)
	require.ErrorIs(t, order.ReserveAutoInvoice("tok", "admin-1", fixedNow), ErrInvoiceNotAllowed)
}

func TestExpireReservation(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.ReserveAutoInvoice("tok", "admin-1", fixedNow))

	require.False(t, order.ExpireReservation(fixedNow))
	require.True(t, order.ExpireReservation(fixedNow.Add(time.Minute)))
	_, held := order.Invoices().Reservation()
	require.False(t, held)
}

func TestAdminInvoice_ReplaceAndRemove(t *testing.T) {
	order := newTestOrder(t)

	_, err := order.ReplaceAdminInvoice(AdminInvoice{Number: "INV-AUTO-9", UploadedBy: "a", Document: BlobRef{Key: "k"}}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidInvoiceNumber)
	_, err = order.ReplaceAdminInvoice(AdminInvoice{Number: "A-1", Document: BlobRef{Key: "k"}}, fixedNow)
	require.ErrorIs(t, err, ErrMissingUploader)

	previous, err := order.ReplaceAdminInvoice(AdminInvoice{Number: "A-1", UploadedBy: "admin", Document: BlobRef{Key: "k1"}}, fixedNow)
	require.NoError(t, err)
	require.Nil(t, previous)

	previous, err = order.ReplaceAdminInvoice(AdminInvoice{Number: "A-2", UploadedBy: "admin", Document: BlobRef{Key: "k2"}}, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, previous)
	require.Equal(t, "k1", previous.Document.Key)

	removed, err := order.RemoveAdminInvoice(fixedNow)
	require.NoError(t, err)
	require.Equal(t, "A-2", removed.Number)

	_, err = order.RemoveAdminInvoice(fixedNow)
	require.ErrorIs(t, err, ErrAdminInvoiceMissing)
}

func TestInvoiceSlots_AreIndependent(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.ReserveAutoInvoice("tok", "system", fixedNow))
	require.NoError(t, order.CommitAutoInvoice("tok", AutoInvoice{Number: "INV-AUTO-1001", Document: BlobRef{Key: "auto"}}, fixedNow))
	_, err := order.ReplaceAdminInvoice(AdminInvoice{Number: "MAN-1", UploadedBy: "admin", Document: BlobRef{Key: "admin"}}, fixedNow)
	require.NoError(t, err)

	refs := order.Invoices().List()
	require.Len(t, refs, 2)
	require.Equal(t, InvoiceKindAuto, refs[0].Kind())
	require.Equal(t, InvoiceKindAdmin, refs[1].Kind())

	_, err = order.RemoveAdminInvoice(fixedNow)
	require.NoError(t, err)
	_, ok := order.Invoices().Auto()
	require.True(t, ok)
}

func TestParseInvoiceKind(t *testing.T) {
	kind, err := ParseInvoiceKind("auto")
	require.NoError(t, err)
	require.Equal(t, InvoiceKindAuto, kind)
	kind, err = ParseInvoiceKind("admin_uploaded")
	require.NoError(t, err)
	require.Equal(t, InvoiceKindAdmin, kind)
	_, err = ParseInvoiceKind("other")
	require.ErrorIs(t, err, ErrInvalidInvoiceKind)
}

func TestRecordPaymentAttempt_CaptureConfirmsPendingOrder(t *testing.T) {
	order := newTestOrder(t)

	result, err := order.RecordPaymentAttempt(Policy{}, PaymentAttempt{
		ID:      "pa-1",
		Gateway: "stripe",
		Amount:  decimal.RequireFromString("49.50"),
		Outcome: OutcomeCaptured,
	}, "gateway", fixedNow)
	require.NoError(t, err)
	require.True(t, result.Transitioned)
	require.True(t, result.Settled)
	require.Equal(t, StatusConfirmed, order.Status())
	require.Equal(t, PaymentStatusPaid, order.Payment().Status)

	timeline := order.Timeline()
	require.Len(t, timeline, 2)
	require.Equal(t, EventPaymentCaptured, timeline[1].Kind)
	require.Equal(t, "pending", timeline[1].Metadata["from_status"])
	require.Equal(t, "confirmed", timeline[1].Metadata["to_status"])

	_, err = order.RecordPaymentAttempt(Policy{}, PaymentAttempt{ID: "pa-1", Outcome: OutcomeCaptured}, "gateway", fixedNow)
	require.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestRecordPaymentAttempt_FailureKeepsStatus(t *testing.T) {
	order := newTestOrder(t)

	result, err := order.RecordPaymentAttempt(Policy{}, PaymentAttempt{ID: "pa-2", Outcome: OutcomeFailed, FailureReason: "card declined"}, "gateway", fixedNow)
	require.NoError(t, err)
	require.False(t, result.Transitioned)
	require.Equal(t, StatusPending, order.Status())
	require.Equal(t, PaymentStatusFailed, order.Payment().Status)
	require.Equal(t, EventPaymentFailed, order.Timeline()[1].Kind)

	_, err = order.RecordPaymentAttempt(Policy{}, PaymentAttempt{ID: "pa-3", Outcome: "unknown"}, "gateway", fixedNow)
	require.ErrorIs(t, err, ErrInvalidPaymentAttempt)
}

func TestRecordPaymentAttempt_LateCaptureOnCancelledOrder(t *testing.T) {
	order := newTestOrder(t)
	_, err := order.Transition(Policy{}, TransitionRequest{Target: StatusCancelled, Reason: "out of stock"}, fixedNow)
	require.NoError(t, err)

	result, err := order.RecordPaymentAttempt(Policy{}, PaymentAttempt{ID: "pa-9", Amount: decimal.NewFromInt(10), Outcome: OutcomeCaptured}, "gateway", fixedNow)
	require.NoError(t, err)
	require.False(t, result.Settled)
	require.False(t, result.Transitioned)
	require.Equal(t, StatusCancelled, order.Status())
	require.Equal(t, PaymentStatusPending, order.Payment().Status)
	require.Len(t, order.Payment().Attempts, 1)

	last := order.Timeline()[len(order.Timeline())-1]
	require.Equal(t, EventPaymentCaptured, last.Kind)
	require.Equal(t, "false", last.Metadata["settled"])
}
