package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// OrderNumberPrefix prefixes the human facing order number.
const OrderNumberPrefix = "ORD-"

// ParseStatus normalises raw input into a known Status.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// Item is a single order line.
type Item struct {
	SKU       string
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// LineTotal returns quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// Pricing is the monetary breakdown of an order.
type Pricing struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ShippingMethod describes how the order ships.
type ShippingMethod struct {
	Name string
	Cost decimal.Decimal
}

// NewOrderParams carries the inputs needed to place an order.
type NewOrderParams struct {
	ID             string
	CustomerID     string
	Items          []Item
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	ShippingMethod ShippingMethod
	PaymentMethod  string
	FraudScore     int
	RiskFlags      []string
	Actor          string
	Now            time.Time
}

// Order is the aggregate root. Status, timeline, notes, shipping and invoice
// slots are only changed through its methods.
type Order struct {
	id             string
	number         string
	customerID     string
	status         Status
	items          []Item
	pricing        Pricing
	payment        Payment
	shippingMethod ShippingMethod
	shipping       ShippingTracker
	fraudScore     int
	riskFlags      []string
	timeline       Timeline
	notes          NoteBook
	invoices       InvoiceSlots
	shippedAt      *time.Time
	deliveredAt    *time.Time
	cancelReason   string
	version        int64
	createdAt      time.Time
	updatedAt      time.Time

	pending []Event
}

// NewOrder validates the inputs, prices the order and records order_created.
func NewOrder(p NewOrderParams) (*Order, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, ErrMissingOrderID
	}
	if strings.TrimSpace(p.CustomerID) == "" {
		return nil, ErrMissingCustomer
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		return nil, ErrMissingPaymentMethod
	}
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}
	if p.FraudScore < 0 || p.FraudScore > 100 {
		return nil, ErrInvalidFraudScore
	}
	items := make([]Item, len(p.Items))
	subtotal := decimal.Zero
	for i, item := range p.Items {
		if strings.TrimSpace(item.SKU) == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidItem, i+1)
		}
		items[i] = item
		subtotal = subtotal.Add(item.LineTotal())
	}
	if p.Discount.IsNegative() || p.Tax.IsNegative() || p.ShippingMethod.Cost.IsNegative() {
		return nil, ErrInvalidPricing
	}
	pricing := Pricing{
		Subtotal: subtotal,
		Discount: p.Discount,
		Shipping: p.ShippingMethod.Cost,
		Tax:      p.Tax,
	}
	pricing.Total = subtotal.Sub(p.Discount).Add(pricing.Shipping).Add(p.Tax)
	if pricing.Total.IsNegative() {
		return nil, fmt.Errorf("%w: discount exceeds order value", ErrInvalidPricing)
	}

	now := p.Now.UTC()
	order := &Order{
		id:             p.ID,
		number:         OrderNumberPrefix + p.ID,
		customerID:     p.CustomerID,
		status:         StatusPending,
		items:          items,
		pricing:        pricing,
		payment:        Payment{Method: p.PaymentMethod, Status: PaymentStatusPending},
		shippingMethod: p.ShippingMethod,
		fraudScore:     p.FraudScore,
		riskFlags:      normaliseFlags(p.RiskFlags),
		createdAt:      now,
		updatedAt:      now,
	}
	order.timeline.append(TimelineEvent{
		Kind:       EventOrderCreated,
		Message:    fmt.Sprintf("Order %s created", order.number),
		Actor:      p.Actor,
		Metadata:   map[string]string{"total": pricing.Total.StringFixed(2)},
		OccurredAt: now,
	})
	order.record(OrderCreated{BaseEvent: order.base(now), Number: order.number, Total: pricing.Total})
	return order, nil
}

func (o *Order) ID() string                     { return o.id }
func (o *Order) Number() string                 { return o.number }
func (o *Order) CustomerID() string             { return o.customerID }
func (o *Order) Status() Status                 { return o.status }
func (o *Order) Pricing() Pricing               { return o.pricing }
func (o *Order) ShippingMethod() ShippingMethod { return o.shippingMethod }
func (o *Order) FraudScore() int                { return o.fraudScore }
func (o *Order) CancelReason() string           { return o.cancelReason }
func (o *Order) Version() int64                 { return o.version }
func (o *Order) CreatedAt() time.Time           { return o.createdAt }
func (o *Order) UpdatedAt() time.Time           { return o.updatedAt }
func (o *Order) ShippedAt() *time.Time          { return cloneTime(o.shippedAt) }
func (o *Order) DeliveredAt() *time.Time        { return cloneTime(o.deliveredAt) }

// Items returns a copy of the order lines.
func (o *Order) Items() []Item { return append([]Item(nil), o.items...) }

// RiskFlags returns a copy of the risk flag set.
func (o *Order) RiskFlags() []string { return append([]string(nil), o.riskFlags...) }

// Payment returns a copy of the payment summary and its attempts.
func (o *Order) Payment() Payment { return o.payment.clone() }

// Shipping returns a copy of the shipping tracker.
func (o *Order) Shipping() ShippingTracker { return o.shipping.clone() }

// Timeline returns the ordered timeline entries.
func (o *Order) Timeline() []TimelineEvent { return o.timeline.Entries() }

// Notes returns the admin notes in insertion order.
func (o *Order) Notes() []AdminNote { return o.notes.Entries() }

// Invoices returns a copy of the invoice slots.
func (o *Order) Invoices() InvoiceSlots { return o.invoices.clone() }

// Clone returns a deep copy without pending events.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	return Rehydrate(o.Snapshot())
}

// Events returns the domain events raised since the order was loaded.
func (o *Order) Events() []Event { return append([]Event(nil), o.pending...) }

// ClearEvents drops raised events.
func (o *Order) ClearEvents() { o.pending = nil }

func (o *Order) record(e Event) { o.pending = append(o.pending, e) }

func (o *Order) base(now time.Time) BaseEvent {
	return BaseEvent{Order: o.id, Timestamp: now}
}

func (o *Order) touch(now time.Time) { o.updatedAt = now.UTC() }

func normaliseFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(flags))
	out := make([]string, 0, len(flags))
	for _, flag := range flags {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}
		if _, ok := seen[flag]; ok {
			continue
		}
		seen[flag] = struct{}{}
		out = append(out, flag)
	}
	sort.Strings(out)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
