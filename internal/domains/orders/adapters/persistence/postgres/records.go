package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

// Models lists every table owned by the orders adapter, for migrations.
func Models() []any {
	return []any{
		&orderRecord{},
		&timelineRecord{},
		&noteRecord{},
		&shippingEventRecord{},
		&paymentAttemptRecord{},
		&invoiceRecord{},
		&blobRecord{},
		&idempotencyRecord{},
	}
}

type itemJSON struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// orderRecord maps the order aggregate root to a relational table. Child
// logs live in their own append-only tables.
type orderRecord struct {
	ID               string                         `gorm:"primaryKey;column:id;size:64"`
	Number           string                         `gorm:"column:number;size:80;uniqueIndex"`
	CustomerID       string                         `gorm:"column:customer_id;size:128;index"`
	Status           string                         `gorm:"column:status;type:varchar(32);index:idx_orders_status_created"`
	Items            datatypes.JSONType[[]itemJSON] `gorm:"column:items"`
	Subtotal         decimal.Decimal                `gorm:"column:subtotal;type:numeric(14,2)"`
	Discount         decimal.Decimal                `gorm:"column:discount;type:numeric(14,2)"`
	ShippingCost     decimal.Decimal                `gorm:"column:shipping_cost;type:numeric(14,2)"`
	Tax              decimal.Decimal                `gorm:"column:tax;type:numeric(14,2)"`
	Total            decimal.Decimal                `gorm:"column:total;type:numeric(14,2)"`
	PaymentMethod    string                         `gorm:"column:payment_method;size:64"`
	PaymentStatus    string                         `gorm:"column:payment_status;type:varchar(32)"`
	ShippingMethod   string                         `gorm:"column:shipping_method;size:64"`
	Carrier          string                         `gorm:"column:carrier;size:64"`
	TrackingNumber   string                         `gorm:"column:tracking_number;size:128"`
	CarrierSetAt     *time.Time                     `gorm:"column:carrier_set_at"`
	FraudScore       int                            `gorm:"column:fraud_score"`
	RiskFlags        pq.StringArray                 `gorm:"column:risk_flags;type:text[]"`
	ShippedAt        *time.Time                     `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time                     `gorm:"column:delivered_at"`
	CancelReason     string                         `gorm:"column:cancel_reason"`
	ReservationToken *string                        `gorm:"column:reservation_token;size:64"`
	ReservationBy    string                         `gorm:"column:reservation_by;size:128"`
	ReservationAt    *time.Time                     `gorm:"column:reservation_at;index"`
	Version          int64                          `gorm:"column:version;not null;default:1"`
	CreatedAt        time.Time                      `gorm:"column:created_at;index:idx_orders_status_created"`
	UpdatedAt        time.Time                      `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type timelineRecord struct {
	ID         int64                                 `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID    string                                `gorm:"column:order_id;size:64;uniqueIndex:idx_timeline_order_seq"`
	Seq        int                                   `gorm:"column:seq;uniqueIndex:idx_timeline_order_seq"`
	Kind       string                                `gorm:"column:kind;type:varchar(40)"`
	Message    string                                `gorm:"column:message"`
	Actor      string                                `gorm:"column:actor;size:128"`
	Metadata   datatypes.JSONType[map[string]string] `gorm:"column:metadata"`
	OccurredAt time.Time                             `gorm:"column:occurred_at"`
}

func (timelineRecord) TableName() string { return "order_timeline_events" }

type noteRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID   string    `gorm:"column:order_id;size:64;uniqueIndex:idx_notes_order_seq"`
	Seq       int       `gorm:"column:seq;uniqueIndex:idx_notes_order_seq"`
	Text      string    `gorm:"column:text"`
	Author    string    `gorm:"column:author;size:128"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (noteRecord) TableName() string { return "order_admin_notes" }

type shippingEventRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID     string    `gorm:"column:order_id;size:64;uniqueIndex:idx_shipping_order_seq"`
	Seq         int       `gorm:"column:seq;uniqueIndex:idx_shipping_order_seq"`
	Label       string    `gorm:"column:label;size:128"`
	Description string    `gorm:"column:description"`
	Location    string    `gorm:"column:location"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
}

func (shippingEventRecord) TableName() string { return "order_shipping_events" }

type paymentAttemptRecord struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID       string          `gorm:"column:order_id;size:64;uniqueIndex:idx_payments_order_seq;uniqueIndex:idx_payments_order_attempt"`
	Seq           int             `gorm:"column:seq;uniqueIndex:idx_payments_order_seq"`
	AttemptID     string          `gorm:"column:attempt_id;size:128;uniqueIndex:idx_payments_order_attempt"`
	Gateway       string          `gorm:"column:gateway;size:64"`
	Reference     string          `gorm:"column:reference;size:128"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2)"`
	Outcome       string          `gorm:"column:outcome;type:varchar(16)"`
	FailureReason string          `gorm:"column:failure_reason"`
	AttemptedAt   time.Time       `gorm:"column:attempted_at"`
}

func (paymentAttemptRecord) TableName() string { return "order_payment_attempts" }

// invoiceRecord holds one row per occupied invoice slot.
type invoiceRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID     string    `gorm:"column:order_id;size:64;uniqueIndex:idx_invoices_order_kind"`
	Kind        string    `gorm:"column:kind;type:varchar(32);uniqueIndex:idx_invoices_order_kind"`
	Number      string    `gorm:"column:number;size:128"`
	IssuedAt    time.Time `gorm:"column:issued_at"`
	IssuedBy    string    `gorm:"column:issued_by;size:128"`
	FileName    string    `gorm:"column:file_name"`
	Notes       string    `gorm:"column:notes"`
	BlobKey     string    `gorm:"column:blob_key"`
	ContentType string    `gorm:"column:content_type;size:128"`
	Size        int64     `gorm:"column:size"`
	Checksum    string    `gorm:"column:checksum;size:128"`
}

func (invoiceRecord) TableName() string { return "order_invoices" }

type blobRecord struct {
	Key         string    `gorm:"primaryKey;column:key"`
	ContentType string    `gorm:"column:content_type;size:128"`
	Data        []byte    `gorm:"column:data;type:bytea"`
	Size        int64     `gorm:"column:size"`
	Checksum    string    `gorm:"column:checksum;size:128"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (blobRecord) TableName() string { return "invoice_blobs" }

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }

func (r idempotencyRecord) toPort() *ports.IdempotencyRecord {
	return &ports.IdempotencyRecord{
		Key:         r.Key,
		RequestHash: r.RequestHash,
		OrderID:     r.OrderID,
		CreatedAt:   r.CreatedAt,
	}
}

func toOrderRecord(s domain.State) orderRecord {
	items := make([]itemJSON, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, itemJSON{SKU: item.SKU, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	rec := orderRecord{
		ID:             s.ID,
		Number:         s.Number,
		CustomerID:     s.CustomerID,
		Status:         string(s.Status),
		Items:          datatypes.NewJSONType(items),
		Subtotal:       s.Pricing.Subtotal,
		Discount:       s.Pricing.Discount,
		ShippingCost:   s.Pricing.Shipping,
		Tax:            s.Pricing.Tax,
		Total:          s.Pricing.Total,
		PaymentMethod:  s.Payment.Method,
		PaymentStatus:  string(s.Payment.Status),
		ShippingMethod: s.ShippingMethod.Name,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		CarrierSetAt:   s.CarrierSetAt,
		FraudScore:     s.FraudScore,
		RiskFlags:      pq.StringArray(s.RiskFlags),
		ShippedAt:      s.ShippedAt,
		DeliveredAt:    s.DeliveredAt,
		CancelReason:   s.CancelReason,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.Reservation != nil {
		token := s.Reservation.Token
		at := s.Reservation.ReservedAt
		rec.ReservationToken = &token
		rec.ReservationBy = s.Reservation.ReservedBy
		rec.ReservationAt = &at
	}
	return rec
}

type children struct {
	timeline []timelineRecord
	notes    []noteRecord
	shipping []shippingEventRecord
	payments []paymentAttemptRecord
	invoices []invoiceRecord
}

func (r orderRecord) toState(c children) domain.State {
	rawItems := r.Items.Data()
	items := make([]domain.Item, 0, len(rawItems))
	for _, item := range rawItems {
		items = append(items, domain.Item{SKU: item.SKU, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	state := domain.State{
		ID:         r.ID,
		Number:     r.Number,
		CustomerID: r.CustomerID,
		Status:     domain.Status(r.Status),
		Items:      items,
		Pricing: domain.Pricing{
			Subtotal: r.Subtotal,
			Discount: r.Discount,
			Shipping: r.ShippingCost,
			Tax:      r.Tax,
			Total:    r.Total,
		},
		Payment: domain.Payment{
			Method: r.PaymentMethod,
			Status: domain.PaymentStatus(r.PaymentStatus),
		},
		ShippingMethod: domain.ShippingMethod{Name: r.ShippingMethod, Cost: r.ShippingCost},
		Carrier:        r.Carrier,
		TrackingNumber: r.TrackingNumber,
		CarrierSetAt:   utcPtr(r.CarrierSetAt),
		FraudScore:     r.FraudScore,
		RiskFlags:      []string(r.RiskFlags),
		ShippedAt:      utcPtr(r.ShippedAt),
		DeliveredAt:    utcPtr(r.DeliveredAt),
		CancelReason:   r.CancelReason,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
	if len(state.RiskFlags) == 0 {
		state.RiskFlags = nil
	}
	if r.ReservationToken != nil && r.ReservationAt != nil {
		state.Reservation = &domain.InvoiceReservation{
			Token:      *r.ReservationToken,
			ReservedBy: r.ReservationBy,
			ReservedAt: r.ReservationAt.UTC(),
		}
	}
	for _, t := range c.timeline {
		state.Timeline = append(state.Timeline, domain.TimelineEvent{
			Kind:       domain.EventKind(t.Kind),
			Message:    t.Message,
			Actor:      t.Actor,
			Metadata:   t.Metadata.Data(),
			OccurredAt: t.OccurredAt.UTC(),
		})
	}
	for _, n := range c.notes {
		state.Notes = append(state.Notes, domain.AdminNote{Text: n.Text, Author: n.Author, CreatedAt: n.CreatedAt.UTC()})
	}
	for _, e := range c.shipping {
		state.ShippingEvents = append(state.ShippingEvents, domain.ShippingEvent{
			Label:       e.Label,
			Description: e.Description,
			Location:    e.Location,
			OccurredAt:  e.OccurredAt.UTC(),
		})
	}
	for _, p := range c.payments {
		state.Payment.Attempts = append(state.Payment.Attempts, domain.PaymentAttempt{
			ID:            p.AttemptID,
			Gateway:       p.Gateway,
			Reference:     p.Reference,
			Amount:        p.Amount,
			Outcome:       domain.AttemptOutcome(p.Outcome),
			FailureReason: p.FailureReason,
			AttemptedAt:   p.AttemptedAt.UTC(),
		})
	}
	for _, inv := range c.invoices {
		ref := domain.BlobRef{Key: inv.BlobKey, ContentType: inv.ContentType, Size: inv.Size, Checksum: inv.Checksum}
		switch domain.InvoiceKind(inv.Kind) {
		case domain.InvoiceKindAuto:
			state.AutoInvoice = &domain.AutoInvoice{
				Number:      inv.Number,
				GeneratedAt: inv.IssuedAt.UTC(),
				GeneratedBy: inv.IssuedBy,
				Document:    ref,
			}
		case domain.InvoiceKindAdmin:
			state.AdminInvoice = &domain.AdminInvoice{
				Number:     inv.Number,
				UploadedAt: inv.IssuedAt.UTC(),
				UploadedBy: inv.IssuedBy,
				FileName:   inv.FileName,
				Notes:      inv.Notes,
				Document:   ref,
			}
		}
	}
	return state
}

func invoiceRecords(s domain.State) []invoiceRecord {
	var records []invoiceRecord
	if inv := s.AutoInvoice; inv != nil {
		records = append(records, invoiceRecord{
			OrderID:     s.ID,
			Kind:        string(domain.InvoiceKindAuto),
			Number:      inv.Number,
			IssuedAt:    inv.GeneratedAt,
			IssuedBy:    inv.GeneratedBy,
			BlobKey:     inv.Document.Key,
			ContentType: inv.Document.ContentType,
			Size:        inv.Document.Size,
			Checksum:    inv.Document.Checksum,
		})
	}
	if inv := s.AdminInvoice; inv != nil {
		records = append(records, invoiceRecord{
			OrderID:     s.ID,
			Kind:        string(domain.InvoiceKindAdmin),
			Number:      inv.Number,
			IssuedAt:    inv.UploadedAt,
			IssuedBy:    inv.UploadedBy,
			FileName:    inv.FileName,
			Notes:       inv.Notes,
			BlobKey:     inv.Document.Key,
			ContentType: inv.Document.ContentType,
			Size:        inv.Document.Size,
			Checksum:    inv.Document.Checksum,
		})
	}
	return records
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
