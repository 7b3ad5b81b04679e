package domain

import "time"

// State is the flat, persistable form of an Order. Repositories map it to
// and from storage; it carries no behaviour.
type State struct {
	ID             string
	Number         string
	CustomerID     string
	Status         Status
	Items          []Item
	Pricing        Pricing
	Payment        Payment
	ShippingMethod ShippingMethod
	Carrier        string
	TrackingNumber string
	CarrierSetAt   *time.Time
	ShippingEvents []ShippingEvent
	FraudScore     int
	RiskFlags      []string
	Timeline       []TimelineEvent
	Notes          []AdminNote
	AutoInvoice    *AutoInvoice
	AdminInvoice   *AdminInvoice
	Reservation    *InvoiceReservation
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	CancelReason   string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot returns a deep copy of the order state.
func (o *Order) Snapshot() State {
	invoices := o.invoices.clone()
	return State{
		ID:             o.id,
		Number:         o.number,
		CustomerID:     o.customerID,
		Status:         o.status,
		Items:          o.Items(),
		Pricing:        o.pricing,
		Payment:        o.payment.clone(),
		ShippingMethod: o.shippingMethod,
		Carrier:        o.shipping.carrier,
		TrackingNumber: o.shipping.trackingNumber,
		CarrierSetAt:   cloneTime(o.shipping.assignedAt),
		ShippingEvents: o.shipping.Events(),
		FraudScore:     o.fraudScore,
		RiskFlags:      o.RiskFlags(),
		Timeline:       o.timeline.Entries(),
		Notes:          o.notes.Entries(),
		AutoInvoice:    invoices.auto,
		AdminInvoice:   invoices.admin,
		Reservation:    invoices.reservation,
		ShippedAt:      cloneTime(o.shippedAt),
		DeliveredAt:    cloneTime(o.deliveredAt),
		CancelReason:   o.cancelReason,
		Version:        o.version,
		CreatedAt:      o.createdAt,
		UpdatedAt:      o.updatedAt,
	}
}

// Rehydrate rebuilds an order from persisted state.
func Rehydrate(s State) *Order {
	timeline := Timeline{}
	for _, e := range s.Timeline {
		timeline.events = append(timeline.events, copyEvent(e))
	}
	order := &Order{
		id:             s.ID,
		number:         s.Number,
		customerID:     s.CustomerID,
		status:         s.Status,
		items:          append([]Item(nil), s.Items...),
		pricing:        s.Pricing,
		payment:        s.Payment.clone(),
		shippingMethod: s.ShippingMethod,
		shipping: ShippingTracker{
			carrier:        s.Carrier,
			trackingNumber: s.TrackingNumber,
			assignedAt:     cloneTime(s.CarrierSetAt),
			events:         append([]ShippingEvent(nil), s.ShippingEvents...),
		},
		fraudScore:   s.FraudScore,
		riskFlags:    append([]string(nil), s.RiskFlags...),
		timeline:     timeline,
		notes:        NoteBook{notes: append([]AdminNote(nil), s.Notes...)},
		shippedAt:    cloneTime(s.ShippedAt),
		deliveredAt:  cloneTime(s.DeliveredAt),
		cancelReason: s.CancelReason,
		version:      s.Version,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
	}
	order.invoices = InvoiceSlots{
		auto:        s.AutoInvoice,
		admin:       s.AdminInvoice,
		reservation: s.Reservation,
	}.clone()
	if order.number == "" {
		order.number = OrderNumberPrefix + order.id
	}
	return order
}
