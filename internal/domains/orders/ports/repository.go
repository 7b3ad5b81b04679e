package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrVersionConflict = errors.New("order was modified concurrently")
	ErrDuplicate       = errors.New("order already exists")
)

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Status domain.Status
	Limit  int
}

// Repository persists order aggregates.
type Repository interface {
	// Create stores a new order at version 1.
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// Save writes the order if its version still matches the stored one and
	// returns the stored copy with the bumped version.
	Save(ctx context.Context, order *domain.Order) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
	// ListReservedBefore returns ids of orders holding an invoice reservation taken before cutoff.
	ListReservedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}
