package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func orderInStatus(t *testing.T, status Status) *Order {
	t.Helper()
	state := newTestOrder(t).Snapshot()
	state.Status = status
	return Rehydrate(state)
}

func TestTransition_Table(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded}
	allowed := map[Status]map[Status]bool{
		StatusPending:    {StatusConfirmed: true, StatusProcessing: true, StatusCancelled: true},
		StatusConfirmed:  {StatusProcessing: true, StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
		StatusProcessing: {StatusShipped: true, StatusDelivered: true, StatusCancelled: true, StatusRefunded: true},
		StatusShipped:    {StatusDelivered: true, StatusRefunded: true},
	}

	for _, from := range all {
		for _, to := range all {
			order := orderInStatus(t, from)
			before := order.Snapshot()
			_, err := order.Transition(Policy{}, TransitionRequest{
				Target:         to,
				Carrier:        "UPS",
				TrackingNumber: "1Z999",
				Reason:         "requested",
			}, fixedNow)

			if allowed[from][to] {
				require.NoError(t, err, "%s -> %s", from, to)
				require.Equal(t, to, order.Status())
				continue
			}
			require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			var terr *TransitionError
			require.ErrorAs(t, err, &terr)
			require.Equal(t, from, terr.From)
			require.Equal(t, to, terr.To)
			require.Equal(t, before, order.Snapshot(), "rejected transition must not mutate")
		}
	}
}

func TestTransition_CancelAfterShipmentIsPolicyDriven(t *testing.T) {
	order := orderInStatus(t, StatusShipped)
	_, err := order.Transition(Policy{}, TransitionRequest{Target: StatusCancelled, Reason: "lost"}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = order.Transition(Policy{AllowCancelAfterShipment: true}, TransitionRequest{Target: StatusCancelled, Reason: "lost"}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, order.Status())
}

func TestTransition_ShippedRequiresCarrierAndTracking(t *testing.T) {
	order := orderInStatus(t, StatusConfirmed)

	_, err := order.Transition(Policy{}, TransitionRequest{Target: StatusShipped, Carrier: "DHL"}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StatusConfirmed, order.Status())
	require.Len(t, order.Timeline(), 1)

	result, err := order.Transition(Policy{}, TransitionRequest{
		Target:         StatusShipped,
		Carrier:        "DHL",
		TrackingNumber: "JD0001",
		Actor:          "admin-1",
	}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, EventOrderShipped, result.Event.Kind)
	require.Equal(t, "confirmed", result.Event.Metadata["from_status"])
	require.Equal(t, "shipped", result.Event.Metadata["to_status"])
	require.Equal(t, "DHL", order.Shipping().Carrier())
	require.Equal(t, "JD0001", order.Shipping().TrackingNumber())
	require.NotNil(t, order.ShippedAt())
}

func TestTransition_CancelRequiresReasonAndDropsReservation(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.ReserveAutoInvoice("tok", "admin-1", fixedNow))

	_, err := order.Transition(Policy{}, TransitionRequest{Target: StatusCancelled}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, held := order.Invoices().Reservation()
	require.True(t, held)

	result, err := order.Transition(Policy{}, TransitionRequest{Target: StatusCancelled, Reason: "out of stock"}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, EventOrderCancelled, result.Event.Kind)
	require.Equal(t, "out of stock", order.CancelReason())
	_, held = order.Invoices().Reservation()
	require.False(t, held)

	err = order.CommitAutoInvoice("tok", AutoInvoice{Number: AutoInvoiceNumber(order.Number()), Document: BlobRef{Key: "k"}}, fixedNow)
	require.ErrorIs(t, err, ErrReservationInvalidated)
}

func TestTransition_EventKindsAndSingleEntry(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		kind EventKind
	}{
		{StatusPending, StatusConfirmed, EventStatusUpdated},
		{StatusConfirmed, StatusProcessing, EventStatusUpdated},
		{StatusProcessing, StatusDelivered, EventOrderDelivered},
		{StatusShipped, StatusRefunded, EventRefundProcessed},
	}
	for _, tc := range cases {
		order := orderInStatus(t, tc.from)
		before := len(order.Timeline())
		_, err := order.Transition(Policy{}, TransitionRequest{Target: tc.to, Notes: "ok", Notify: true}, fixedNow)
		require.NoError(t, err)

		timeline := order.Timeline()
		require.Len(t, timeline, before+1)
		last := timeline[len(timeline)-1]
		require.Equal(t, tc.kind, last.Kind)
		require.Equal(t, string(tc.from), last.Metadata["from_status"])
		require.Equal(t, string(tc.to), last.Metadata["to_status"])
		require.Equal(t, "ok", last.Metadata["notes"])

		events := order.Events()
		require.Len(t, events, 1)
		changed, ok := events[0].(StatusChanged)
		require.True(t, ok)
		require.True(t, changed.Notify)
	}
}

func TestTransition_TerminalRejectsUnknownTarget(t *testing.T) {
	order := orderInStatus(t, StatusDelivered)
	_, err := order.Transition(Policy{}, TransitionRequest{Target: "archived"}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NotErrorIs(t, err, ErrInvalidStatus)

	order = orderInStatus(t, StatusPending)
	_, err = order.Transition(Policy{}, TransitionRequest{Target: "archived"}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTransition_DeliveredAtSetOnce(t *testing.T) {
	order := orderInStatus(t, StatusShipped)
	_, err := order.Transition(Policy{}, TransitionRequest{Target: StatusDelivered}, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, order.DeliveredAt())
	require.Equal(t, fixedNow, *order.DeliveredAt())
}

func TestTransition_RefundMarksPayment(t *testing.T) {
	order := orderInStatus(t, StatusConfirmed)
	_, err := order.Transition(Policy{}, TransitionRequest{Target: StatusRefunded}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusRefunded, order.Payment().Status)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Shipped ")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, status)

	_, err = ParseStatus("lost")
	require.ErrorIs(t, err, ErrInvalidStatus)
}
