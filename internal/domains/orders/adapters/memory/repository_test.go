package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

func newOrder(t *testing.T, id string, createdAt time.Time) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(domain.NewOrderParams{
		ID:            id,
		CustomerID:    "cust-1",
		Items:         []domain.Item{{SKU: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
		PaymentMethod: "card",
		Now:           createdAt,
	})
	require.NoError(t, err)
	return order
}

func TestRepository_OptimisticVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	created, err := repo.Create(ctx, newOrder(t, "1", time.Now()))
	require.NoError(t, err)
	require.EqualValues(t, 1, created.Version())

	_, err = repo.Create(ctx, newOrder(t, "1", time.Now()))
	require.ErrorIs(t, err, ports.ErrDuplicate)

	first, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)

	_, err = first.AddNote("one", "admin", time.Now())
	require.NoError(t, err)
	saved, err := repo.Save(ctx, first)
	require.NoError(t, err)
	require.EqualValues(t, 2, saved.Version())

	_, err = second.AddNote("two", "admin", time.Now())
	require.NoError(t, err)
	_, err = repo.Save(ctx, second)
	require.ErrorIs(t, err, ports.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.Len(t, stored.Notes(), 1)
}

func TestRepository_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"1", "2", "3"} {
		_, err := repo.Create(ctx, newOrder(t, id, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	order, err := repo.GetByID(ctx, "2")
	require.NoError(t, err)
	_, err = order.Transition(domain.Policy{}, domain.TransitionRequest{Target: domain.StatusCancelled, Reason: "dup"}, base)
	require.NoError(t, err)
	_, err = repo.Save(ctx, order)
	require.NoError(t, err)

	all, err := repo.List(ctx, ports.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "3", all[0].ID())

	cancelled, err := repo.List(ctx, ports.ListFilter{Status: domain.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	require.Equal(t, "2", cancelled[0].ID())

	limited, err := repo.List(ctx, ports.ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestRepository_ListReservedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	now := time.Now().UTC()
	_, err := repo.Create(ctx, newOrder(t, "1", now))
	require.NoError(t, err)

	order, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, order.ReserveAutoInvoice("tok", "admin", now.Add(-time.Hour)))
	_, err = repo.Save(ctx, order)
	require.NoError(t, err)

	ids, err := repo.ListReservedBefore(ctx, now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, ids)

	ids, err = repo.ListReservedBefore(ctx, now.Add(-2*time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestBlobStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()
	ref, err := store.Put(ctx, ports.Blob{Key: "k", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	require.EqualValues(t, 8, ref.Size)
	require.NotEmpty(t, ref.Checksum)

	rc, err := store.Get(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Get(ctx, ref)
	require.ErrorIs(t, err, ports.ErrBlobNotFound)
	require.ErrorIs(t, store.Delete(ctx, ref), ports.ErrBlobNotFound)
}
