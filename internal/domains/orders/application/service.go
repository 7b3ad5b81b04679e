package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	types "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

const (
	defaultLockWait       = 5 * time.Second
	defaultRenderTimeout  = 30 * time.Second
	defaultMaxUploadBytes = 5 << 20
	defaultListLimit      = 50
	maxListLimit          = 500
	expireBatchSize       = 100
)

// errSkipSave lets a mutation decide that nothing needs to be written.
var errSkipSave = errors.New("no changes to save")

// Dependencies are the driven ports the service needs.
type Dependencies struct {
	Repository ports.Repository
	IDs        ports.IDGenerator
	Locker     ports.Locker
	Blobs      ports.BlobStore
	Renderer   ports.Renderer
}

// Settings tunes timeouts and limits.
type Settings struct {
	LockWait       time.Duration
	RenderTimeout  time.Duration
	MaxUploadBytes int64
	SellerName     string
}

// Option customises the service.
type Option func(*Service)

// WithIdempotencyStore enables Idempotency-Key replay for CreateOrder.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idem = store
	}
}

// WithPolicy sets the transition policy.
func WithPolicy(policy domain.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithSettings overrides timeouts and limits. Zero fields keep their defaults.
func WithSettings(settings Settings) Option {
	return func(s *Service) {
		if settings.LockWait > 0 {
			s.settings.LockWait = settings.LockWait
		}
		if settings.RenderTimeout > 0 {
			s.settings.RenderTimeout = settings.RenderTimeout
		}
		if settings.MaxUploadBytes > 0 {
			s.settings.MaxUploadBytes = settings.MaxUploadBytes
		}
		if settings.SellerName != "" {
			s.settings.SellerName = settings.SellerName
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for best-effort cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks registers post-commit hooks.
func WithHooks(hooks ...PostCommitHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, hooks...) }
}

// Service orchestrates the orders bounded context use cases.
type Service struct {
	repo     ports.Repository
	ids      ports.IDGenerator
	locker   ports.Locker
	blobs    ports.BlobStore
	renderer ports.Renderer
	idem     ports.IdempotencyStore

	policy   domain.Policy
	settings Settings
	now      func() time.Time
	logger   *slog.Logger

	hooksMu sync.RWMutex
	hooks   []PostCommitHook
}

var _ ports.Service = (*Service)(nil)

// NewService wires the orders service with its dependencies.
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		repo:     deps.Repository,
		ids:      deps.IDs,
		locker:   deps.Locker,
		blobs:    deps.Blobs,
		renderer: deps.Renderer,
		settings: Settings{
			LockWait:       defaultLockWait,
			RenderTimeout:  defaultRenderTimeout,
			MaxUploadBytes: defaultMaxUploadBytes,
			SellerName:     "Order Lifecycle",
		},
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddHook registers a post-commit hook after construction.
func (s *Service) AddHook(hook PostCommitHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// CreateOrder prices and persists a new pending order. With an idempotency key
// a retried request returns the order created by the first attempt.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error) {
	orderID, replay, err := s.claimOrderID(ctx, input)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}
	items := make([]domain.Item, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.Item{
			SKU:       strings.TrimSpace(item.SKU),
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	order, err := domain.NewOrder(domain.NewOrderParams{
		ID:             orderID,
		CustomerID:     input.CustomerID,
		Items:          items,
		Discount:       input.Discount,
		Tax:            input.Tax,
		ShippingMethod: domain.ShippingMethod{Name: input.ShippingMethod, Cost: input.ShippingCost},
		PaymentMethod:  input.PaymentMethod,
		FraudScore:     input.FraudScore,
		RiskFlags:      input.RiskFlags,
		Actor:          input.Actor,
		Now:            s.now(),
	})
	if err != nil {
		return nil, mapError(err)
	}
	events := order.Events()
	saved, err := s.repo.Create(ctx, order)
	if err != nil {
		if input.IdempotencyKey != "" && errors.Is(err, ports.ErrDuplicate) {
			// A concurrent retry with the same key won the insert.
			return s.GetOrder(ctx, orderID)
		}
		return nil, mapError(err)
	}
	s.afterCommit(ctx, saved, events)
	return saved, nil
}

// claimOrderID picks the id for a new order. Without a key it is fresh; with one
// the first request's id is reused and an already stored order is returned.
func (s *Service) claimOrderID(ctx context.Context, input types.CreateOrderInput) (string, *domain.Order, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" || s.idem == nil {
		return s.ids.NewOrderID(), nil, nil
	}
	hash, err := FingerprintCreateOrder(input)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	record, err := s.idem.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: hash, OrderID: s.ids.NewOrderID()})
	if err != nil {
		return "", nil, mapError(err)
	}
	existing, err := s.repo.GetByID(ctx, record.OrderID)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "replayed order placement", slog.String("order_id", record.OrderID))
		return record.OrderID, existing, nil
	case errors.Is(err, ports.ErrNotFound):
		return record.OrderID, nil, nil
	default:
		return "", nil, mapError(err)
	}
}

// GetOrder loads a single order.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// ListOrders returns orders, newest first, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error) {
	filter := ports.ListFilter{Limit: input.Limit}
	if strings.TrimSpace(input.Status) != "" {
		status, err := domain.ParseStatus(input.Status)
		if err != nil {
			return nil, mapError(err)
		}
		filter.Status = status
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// RequestTransition applies a status change through the state machine.
func (s *Service) RequestTransition(ctx context.Context, input types.TransitionInput) (*domain.Order, error) {
	// Terminal orders reject every target, known or not, so validation happens in the aggregate.
	target := domain.Status(strings.ToLower(strings.TrimSpace(input.Status)))
	return s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		_, err := order.Transition(s.policy, domain.TransitionRequest{
			Target:         target,
			Carrier:        input.Carrier,
			TrackingNumber: input.TrackingNumber,
			Reason:         input.Reason,
			Notes:          input.Notes,
			Actor:          input.Actor,
			Notify:         input.Notify,
		}, s.now())
		return err
	})
}

// AddAdminNote appends a staff note and its timeline entry.
func (s *Service) AddAdminNote(ctx context.Context, input types.AdminNoteInput) (*domain.Order, error) {
	return s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		_, err := order.AddNote(input.Text, input.Author, s.now())
		return err
	})
}

// AppendShippingEvent records a carrier event.
func (s *Service) AppendShippingEvent(ctx context.Context, input types.ShippingEventInput) (*domain.Order, error) {
	return s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		_, err := order.AppendShippingEvent(domain.ShippingEvent{
			Label:       input.Label,
			Description: input.Description,
			Location:    input.Location,
			OccurredAt:  input.OccurredAt,
		}, s.now())
		return err
	})
}

// RecordPaymentAttempt appends a gateway attempt to the payment ledger.
func (s *Service) RecordPaymentAttempt(ctx context.Context, input types.PaymentAttemptInput) (*domain.Order, error) {
	outcome, err := domain.ParseAttemptOutcome(input.Outcome)
	if err != nil {
		return nil, mapError(err)
	}
	return s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		_, err := order.RecordPaymentAttempt(s.policy, domain.PaymentAttempt{
			ID:            input.AttemptID,
			Gateway:       input.Gateway,
			Reference:     input.Reference,
			Amount:        input.Amount,
			Outcome:       outcome,
			FailureReason: input.FailureReason,
			AttemptedAt:   input.AttemptedAt,
		}, input.Actor, s.now())
		return err
	})
}

// ExpireReservations clears auto invoice reservations left behind by
// generations that never finished.
func (s *Service) ExpireReservations(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	ids, err := s.repo.ListReservedBefore(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, mapError(err)
	}
	expired := 0
	for _, id := range ids {
		changed := false
		_, err := s.mutate(ctx, id, func(order *domain.Order) error {
			if !order.ExpireReservation(cutoff) {
				return errSkipSave
			}
			changed = true
			return nil
		})
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// mutate loads the order under its lock, applies fn and saves the result.
// Post-commit hooks run after the lock is released.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(order *domain.Order) error) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, domain.ErrMissingOrderID)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.settings.LockWait)
	unlock, err := s.locker.Lock(lockCtx, orderID)
	cancel()
	if err != nil {
		if !errors.Is(err, ports.ErrLockNotAcquired) {
			err = fmt.Errorf("%w: %w", ports.ErrLockNotAcquired, err)
		}
		return nil, mapError(err)
	}

	saved, events, err := func() (*domain.Order, []domain.Event, error) {
		defer unlock()
		order, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return nil, nil, err
		}
		if err := fn(order); err != nil {
			if errors.Is(err, errSkipSave) {
				return order, nil, nil
			}
			return nil, nil, err
		}
		events := order.Events()
		saved, err := s.repo.Save(ctx, order)
		if err != nil {
			return nil, nil, err
		}
		return saved, events, nil
	}()
	if err != nil {
		return nil, mapError(err)
	}
	s.afterCommit(ctx, saved, events)
	return saved, nil
}

func (s *Service) afterCommit(ctx context.Context, order *domain.Order, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	s.hooksMu.RLock()
	hooks := append([]PostCommitHook(nil), s.hooks...)
	s.hooksMu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, hook := range hooks {
		hook.AfterCommit(detached, order.Clone(), events)
	}
}
