package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. Saves are optimistic:
// the row is only updated when its version still matches.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new order with its initial child rows.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	state := order.Snapshot()
	state.Version = 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := toOrderRecord(state)
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ports.ErrDuplicate
			}
			return err
		}
		return appendChildren(tx, state, children{})
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, state.ID)
}

// GetByID fetches an order with its logs and invoice slots.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	loaded, err := loadChildren(r.db.WithContext(ctx), []string{id})
	if err != nil {
		return nil, err
	}
	return domain.Rehydrate(record.toState(loaded[id])), nil
}

// Save writes the order when the stored version matches and bumps it.
func (r *Repository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	state := order.Snapshot()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := toOrderRecord(state)
		result := tx.Model(&orderRecord{}).
			Where("id = ? AND version = ?", state.ID, state.Version).
			Updates(map[string]any{
				"status":            record.Status,
				"payment_status":    record.PaymentStatus,
				"carrier":           record.Carrier,
				"tracking_number":   record.TrackingNumber,
				"carrier_set_at":    record.CarrierSetAt,
				"shipped_at":        record.ShippedAt,
				"delivered_at":      record.DeliveredAt,
				"cancel_reason":     record.CancelReason,
				"reservation_token": record.ReservationToken,
				"reservation_by":    record.ReservationBy,
				"reservation_at":    record.ReservationAt,
				"version":           gorm.Expr("version + 1"),
				"updated_at":        record.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&orderRecord{}).Where("id = ?", state.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ports.ErrNotFound
			}
			return ports.ErrVersionConflict
		}

		existing, err := loadChildren(tx, []string{state.ID})
		if err != nil {
			return err
		}
		if err := appendChildren(tx, state, existing[state.ID]); err != nil {
			return err
		}
		return syncInvoices(tx, state)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, state.ID)
}

// List returns orders newest first.
func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&orderRecord{}).Order("created_at DESC").Order("id DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	loaded, err := loadChildren(r.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, domain.Rehydrate(records[i].toState(loaded[records[i].ID])))
	}
	return orders, nil
}

// ListReservedBefore returns orders whose invoice reservation predates cutoff.
func (r *Repository) ListReservedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var ids []string
	query := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("reservation_at IS NOT NULL AND reservation_at < ?", cutoff).
		Order("reservation_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func loadChildren(db *gorm.DB, ids []string) (map[string]children, error) {
	out := make(map[string]children, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var timeline []timelineRecord
	if err := db.Where("order_id IN ?", ids).Order("seq ASC").Find(&timeline).Error; err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	var notes []noteRecord
	if err := db.Where("order_id IN ?", ids).Order("seq ASC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	var shipping []shippingEventRecord
	if err := db.Where("order_id IN ?", ids).Order("seq ASC").Find(&shipping).Error; err != nil {
		return nil, fmt.Errorf("load shipping events: %w", err)
	}
	var payments []paymentAttemptRecord
	if err := db.Where("order_id IN ?", ids).Order("seq ASC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("load payment attempts: %w", err)
	}
	var invoices []invoiceRecord
	if err := db.Where("order_id IN ?", ids).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	for _, rec := range timeline {
		c := out[rec.OrderID]
		c.timeline = append(c.timeline, rec)
		out[rec.OrderID] = c
	}
	for _, rec := range notes {
		c := out[rec.OrderID]
		c.notes = append(c.notes, rec)
		out[rec.OrderID] = c
	}
	for _, rec := range shipping {
		c := out[rec.OrderID]
		c.shipping = append(c.shipping, rec)
		out[rec.OrderID] = c
	}
	for _, rec := range payments {
		c := out[rec.OrderID]
		c.payments = append(c.payments, rec)
		out[rec.OrderID] = c
	}
	for _, rec := range invoices {
		c := out[rec.OrderID]
		c.invoices = append(c.invoices, rec)
		out[rec.OrderID] = c
	}
	return out, nil
}

// appendChildren inserts log entries past what is already stored. Logs are
// append-only so the stored rows are always a prefix of the state.
func appendChildren(tx *gorm.DB, s domain.State, stored children) error {
	var timeline []timelineRecord
	for i := len(stored.timeline); i < len(s.Timeline); i++ {
		e := s.Timeline[i]
		timeline = append(timeline, timelineRecord{
			OrderID:    s.ID,
			Seq:        i,
			Kind:       string(e.Kind),
			Message:    e.Message,
			Actor:      e.Actor,
			Metadata:   datatypes.NewJSONType(e.Metadata),
			OccurredAt: e.OccurredAt,
		})
	}
	if len(timeline) > 0 {
		if err := tx.Create(&timeline).Error; err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
	}

	var notes []noteRecord
	for i := len(stored.notes); i < len(s.Notes); i++ {
		n := s.Notes[i]
		notes = append(notes, noteRecord{OrderID: s.ID, Seq: i, Text: n.Text, Author: n.Author, CreatedAt: n.CreatedAt})
	}
	if len(notes) > 0 {
		if err := tx.Create(&notes).Error; err != nil {
			return fmt.Errorf("append notes: %w", err)
		}
	}

	var shipping []shippingEventRecord
	for i := len(stored.shipping); i < len(s.ShippingEvents); i++ {
		e := s.ShippingEvents[i]
		shipping = append(shipping, shippingEventRecord{
			OrderID:     s.ID,
			Seq:         i,
			Label:       e.Label,
			Description: e.Description,
			Location:    e.Location,
			OccurredAt:  e.OccurredAt,
		})
	}
	if len(shipping) > 0 {
		if err := tx.Create(&shipping).Error; err != nil {
			return fmt.Errorf("append shipping events: %w", err)
		}
	}

	var payments []paymentAttemptRecord
	for i := len(stored.payments); i < len(s.Payment.Attempts); i++ {
		p := s.Payment.Attempts[i]
		payments = append(payments, paymentAttemptRecord{
			OrderID:       s.ID,
			Seq:           i,
			AttemptID:     p.ID,
			Gateway:       p.Gateway,
			Reference:     p.Reference,
			Amount:        p.Amount,
			Outcome:       string(p.Outcome),
			FailureReason: p.FailureReason,
			AttemptedAt:   p.AttemptedAt,
		})
	}
	if len(payments) > 0 {
		if err := tx.Create(&payments).Error; err != nil {
			return fmt.Errorf("append payment attempts: %w", err)
		}
	}
	return nil
}

// syncInvoices makes order_invoices mirror the two slots.
func syncInvoices(tx *gorm.DB, s domain.State) error {
	records := invoiceRecords(s)
	kinds := make([]string, 0, len(records))
	for _, rec := range records {
		kinds = append(kinds, rec.Kind)
	}
	del := tx.Where("order_id = ?", s.ID)
	if len(kinds) > 0 {
		del = del.Where("kind NOT IN ?", kinds)
	}
	if err := del.Delete(&invoiceRecord{}).Error; err != nil {
		return fmt.Errorf("clear invoice slots: %w", err)
	}
	for i := range records {
		rec := records[i]
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"number", "issued_at", "issued_by", "file_name", "notes",
				"blob_key", "content_type", "size", "checksum",
			}),
		}).Create(&rec).Error; err != nil {
			return fmt.Errorf("upsert %s invoice: %w", rec.Kind, err)
		}
	}
	return nil
}
