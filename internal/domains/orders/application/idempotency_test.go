package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/memory"
	types "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
)

func placement(key string) types.CreateOrderInput {
	return types.CreateOrderInput{
		CustomerID:     "cust-42",
		Items:          []types.ItemInput{{SKU: "SKU-1", Name: "Lamp", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")}},
		ShippingMethod: "express",
		ShippingCost:   decimal.RequireFromString("4.00"),
		PaymentMethod:  "card",
		RiskFlags:      []string{"velocity", "new_device"},
		Actor:          "customer",
		IdempotencyKey: key,
	}
}

func TestFingerprintCreateOrder_IgnoresKeyActorAndNumberFormatting(t *testing.T) {
	a := placement("k1")
	b := placement("k2")
	b.Actor = "someone-else"
	b.Items[0].UnitPrice = decimal.RequireFromString("12.5")
	b.RiskFlags = []string{"new_device", "velocity"}

	ha, err := FingerprintCreateOrder(a)
	require.NoError(t, err)
	hb, err := FingerprintCreateOrder(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)

	b.Items[0].Quantity = 3
	hc, err := FingerprintCreateOrder(b)
	require.NoError(t, err)
	require.NotEqual(t, ha, hc)
}

func TestCreateOrder_IdempotencyKeyReplaysFirstResult(t *testing.T) {
	h := newHarness(t, WithIdempotencyStore(memory.NewIdempotencyStore()))
	ctx := context.Background()

	first, err := h.svc.CreateOrder(ctx, placement("retry-1"))
	require.NoError(t, err)
	second, err := h.svc.CreateOrder(ctx, placement("retry-1"))
	require.NoError(t, err)
	require.Equal(t, first.ID(), second.ID())
	require.Len(t, second.Timeline(), 1)

	orders, err := h.svc.ListOrders(ctx, types.ListOrdersInput{})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	other, err := h.svc.CreateOrder(ctx, placement("retry-2"))
	require.NoError(t, err)
	require.NotEqual(t, first.ID(), other.ID())
}

func TestCreateOrder_IdempotencyKeyWithDifferentPayloadConflicts(t *testing.T) {
	h := newHarness(t, WithIdempotencyStore(memory.NewIdempotencyStore()))
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, placement("retry-1"))
	require.NoError(t, err)

	changed := placement("retry-1")
	changed.Items[0].Quantity = 5
	_, err = h.svc.CreateOrder(ctx, changed)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateOrder_RetryOfRejectedPlacementIsValidatedAgain(t *testing.T) {
	store := memory.NewIdempotencyStore()
	h := newHarness(t, WithIdempotencyStore(store))
	ctx := context.Background()

	invalid := placement("retry-1")
	invalid.PaymentMethod = ""
	_, err := h.svc.CreateOrder(ctx, invalid)
	require.ErrorIs(t, err, ErrInvalidInput)

	record, err := store.Get(ctx, "retry-1")
	require.NoError(t, err)
	require.NotNil(t, record)

	_, err = h.svc.CreateOrder(ctx, invalid)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.GetOrder(ctx, record.OrderID)
	require.ErrorIs(t, err, ErrNotFound)
}
