package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter. It stores snapshots
// so callers never share state with the stored copy.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.State
}

func NewRepository() *Repository {
	return &Repository{orders: map[string]domain.State{}}
}

func (r *Repository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	state := order.Snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[state.ID]; exists {
		return nil, ports.ErrDuplicate
	}
	state.Version = 1
	r.orders[state.ID] = state
	return domain.Rehydrate(state), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return domain.Rehydrate(state), nil
}

func (r *Repository) Save(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	state := order.Snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[state.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.Version != state.Version {
		return nil, ports.ErrVersionConflict
	}
	state.Version++
	r.orders[state.ID] = state
	return domain.Rehydrate(state), nil
}

func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	r.mu.RLock()
	states := make([]domain.State, 0, len(r.orders))
	for _, state := range r.orders {
		if filter.Status != "" && state.Status != filter.Status {
			continue
		}
		states = append(states, state)
	}
	r.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		if states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].ID > states[j].ID
		}
		return states[i].CreatedAt.After(states[j].CreatedAt)
	})
	if filter.Limit > 0 && len(states) > filter.Limit {
		states = states[:filter.Limit]
	}
	list := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		list = append(list, domain.Rehydrate(state))
	}
	return list, nil
}

func (r *Repository) ListReservedBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, state := range r.orders {
		if state.Reservation != nil && state.Reservation.ReservedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
