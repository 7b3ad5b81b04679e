package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
)

// OrderItem is one purchased line on the wire. Amounts are decimal strings.
type OrderItem struct {
	SKU       string          `json:"sku" binding:"required"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CreateOrder is the payload of POST /orders.
type CreateOrder struct {
	CustomerID     string          `json:"customerId" binding:"required"`
	Items          []OrderItem     `json:"items" binding:"required,min=1,dive"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	ShippingMethod string          `json:"shippingMethod"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	PaymentMethod  string          `json:"paymentMethod" binding:"required"`
	FraudScore     int             `json:"fraudScore" binding:"gte=0,lte=100"`
	RiskFlags      []string        `json:"riskFlags,omitempty"`
}

// StatusUpdate is the payload of PUT /orders/:orderId/status.
type StatusUpdate struct {
	Status           string `json:"status" binding:"required"`
	Carrier          string `json:"carrier,omitempty"`
	TrackingNumber   string `json:"trackingNumber,omitempty"`
	Notes            string `json:"notes,omitempty"`
	Reason           string `json:"reason,omitempty"`
	SendNotification *bool  `json:"sendNotification,omitempty"`
}

// NewNote is the payload of POST /orders/:orderId/notes.
type NewNote struct {
	Note string `json:"note" binding:"required"`
}

// CarrierEvent is the carrier webhook payload.
type CarrierEvent struct {
	Label       string     `json:"label" binding:"required"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	OccurredAt  *time.Time `json:"occurredAt,omitempty"`
}

// PaymentCallback is the payment gateway webhook payload.
type PaymentCallback struct {
	AttemptID     string          `json:"attemptId" binding:"required"`
	Gateway       string          `json:"gateway,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Outcome       string          `json:"outcome" binding:"required"`
	FailureReason string          `json:"failureReason,omitempty"`
	AttemptedAt   *time.Time      `json:"attemptedAt,omitempty"`
}

// Pricing mirrors domain.Pricing.
type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

type PaymentAttempt struct {
	ID            string          `json:"id"`
	Gateway       string          `json:"gateway,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Outcome       string          `json:"outcome"`
	FailureReason string          `json:"failureReason,omitempty"`
	AttemptedAt   time.Time       `json:"attemptedAt"`
}

type Payment struct {
	Method   string           `json:"method"`
	Status   string           `json:"status"`
	Attempts []PaymentAttempt `json:"attempts"`
}

type ShippingEvent struct {
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Shipping struct {
	Method         string          `json:"method"`
	Cost           decimal.Decimal `json:"cost"`
	Carrier        string          `json:"carrier,omitempty"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	Events         []ShippingEvent `json:"events"`
}

type TimelineEntry struct {
	Event      string            `json:"event"`
	Message    string            `json:"message"`
	Actor      string            `json:"actor,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

type AdminNote struct {
	Note      string    `json:"note"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Invoice is a stored invoice reference. Document bytes are served separately.
type Invoice struct {
	Kind          string    `json:"kind"`
	InvoiceNumber string    `json:"invoiceNumber"`
	IssuedAt      time.Time `json:"issuedAt"`
	IssuedBy      string    `json:"issuedBy"`
	FileName      string    `json:"fileName,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ContentType   string    `json:"contentType"`
	Size          int64     `json:"size"`
	Checksum      string    `json:"checksum,omitempty"`
	DownloadPath  string    `json:"downloadPath"`
}

// Order is the full aggregate snapshot returned by the API.
type Order struct {
	ID           string          `json:"id"`
	OrderNumber  string          `json:"orderNumber"`
	CustomerID   string          `json:"customerId"`
	Status       string          `json:"status"`
	Items        []OrderItem     `json:"items"`
	Pricing      Pricing         `json:"pricing"`
	Payment      Payment         `json:"payment"`
	Shipping     Shipping        `json:"shipping"`
	FraudScore   int             `json:"fraudScore"`
	RiskFlags    []string        `json:"riskFlags"`
	CancelReason string          `json:"cancelReason,omitempty"`
	ShippedAt    *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt  *time.Time      `json:"deliveredAt,omitempty"`
	Timeline     []TimelineEntry `json:"timeline"`
	AdminNotes   []AdminNote     `json:"adminNotes"`
	Invoices     []Invoice       `json:"invoices"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// OrderSummary is the list view.
type OrderSummary struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	CustomerID  string          `json:"customerId"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ToCreateOrderInput converts the create payload to the application input.
func ToCreateOrderInput(payload CreateOrder, actor string) ordertypes.CreateOrderInput {
	items := make([]ordertypes.ItemInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, ordertypes.ItemInput{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return ordertypes.CreateOrderInput{
		CustomerID:     payload.CustomerID,
		Items:          items,
		Discount:       payload.Discount,
		Tax:            payload.Tax,
		ShippingMethod: payload.ShippingMethod,
		ShippingCost:   payload.ShippingCost,
		PaymentMethod:  payload.PaymentMethod,
		FraudScore:     payload.FraudScore,
		RiskFlags:      payload.RiskFlags,
		Actor:          actor,
	}
}

// ToTransitionInput converts a status update. Notifications are opt-in.
func ToTransitionInput(orderID string, payload StatusUpdate, actor string) ordertypes.TransitionInput {
	return ordertypes.TransitionInput{
		OrderID:        orderID,
		Status:         payload.Status,
		Carrier:        payload.Carrier,
		TrackingNumber: payload.TrackingNumber,
		Reason:         payload.Reason,
		Notes:          payload.Notes,
		Notify:         payload.SendNotification != nil && *payload.SendNotification,
		Actor:          actor,
	}
}

func ToShippingEventInput(orderID string, payload CarrierEvent) ordertypes.ShippingEventInput {
	input := ordertypes.ShippingEventInput{
		OrderID:     orderID,
		Label:       payload.Label,
		Description: payload.Description,
		Location:    payload.Location,
	}
	if payload.OccurredAt != nil {
		input.OccurredAt = payload.OccurredAt.UTC()
	}
	return input
}

func ToPaymentAttemptInput(orderID string, payload PaymentCallback, actor string) ordertypes.PaymentAttemptInput {
	input := ordertypes.PaymentAttemptInput{
		OrderID:       orderID,
		AttemptID:     payload.AttemptID,
		Gateway:       payload.Gateway,
		Reference:     payload.Reference,
		Amount:        payload.Amount,
		Outcome:       payload.Outcome,
		FailureReason: payload.FailureReason,
		Actor:         actor,
	}
	if payload.AttemptedAt != nil {
		input.AttemptedAt = payload.AttemptedAt.UTC()
	}
	return input
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	items := make([]OrderItem, 0)
	for _, item := range order.Items() {
		items = append(items, OrderItem{SKU: item.SKU, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	p := order.Pricing()
	payment := order.Payment()
	attempts := make([]PaymentAttempt, 0, len(payment.Attempts))
	for _, a := range payment.Attempts {
		attempts = append(attempts, PaymentAttempt{
			ID:            a.ID,
			Gateway:       a.Gateway,
			Reference:     a.Reference,
			Amount:        a.Amount,
			Outcome:       string(a.Outcome),
			FailureReason: a.FailureReason,
			AttemptedAt:   a.AttemptedAt,
		})
	}
	tracker := order.Shipping()
	shippingEvents := make([]ShippingEvent, 0)
	for _, e := range tracker.Events() {
		shippingEvents = append(shippingEvents, ShippingEvent{Label: e.Label, Description: e.Description, Location: e.Location, OccurredAt: e.OccurredAt})
	}
	timeline := make([]TimelineEntry, 0)
	for _, e := range order.Timeline() {
		timeline = append(timeline, TimelineEntry{
			Event:      string(e.Kind),
			Message:    e.Message,
			Actor:      e.Actor,
			Metadata:   e.Metadata,
			OccurredAt: e.OccurredAt,
		})
	}
	notes := make([]AdminNote, 0)
	for _, n := range order.Notes() {
		notes = append(notes, AdminNote{Note: n.Text, Author: n.Author, CreatedAt: n.CreatedAt})
	}
	flags := order.RiskFlags()
	if flags == nil {
		flags = []string{}
	}
	return Order{
		ID:          order.ID(),
		OrderNumber: order.Number(),
		CustomerID:  order.CustomerID(),
		Status:      string(order.Status()),
		Items:       items,
		Pricing: Pricing{
			Subtotal: p.Subtotal,
			Discount: p.Discount,
			Shipping: p.Shipping,
			Tax:      p.Tax,
			Total:    p.Total,
		},
		Payment: Payment{Method: payment.Method, Status: string(payment.Status), Attempts: attempts},
		Shipping: Shipping{
			Method:         order.ShippingMethod().Name,
			Cost:           order.ShippingMethod().Cost,
			Carrier:        tracker.Carrier(),
			TrackingNumber: tracker.TrackingNumber(),
			Events:         shippingEvents,
		},
		FraudScore:   order.FraudScore(),
		RiskFlags:    flags,
		CancelReason: order.CancelReason(),
		ShippedAt:    order.ShippedAt(),
		DeliveredAt:  order.DeliveredAt(),
		Timeline:     timeline,
		AdminNotes:   notes,
		Invoices:     FromInvoiceReferences(order.ID(), order.Invoices().List()),
		Version:      order.Version(),
		CreatedAt:    order.CreatedAt(),
		UpdatedAt:    order.UpdatedAt(),
	}
}

// FromDomainOrders builds the list view.
func FromDomainOrders(orders []*domain.Order) []OrderSummary {
	out := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		out = append(out, OrderSummary{
			ID:          order.ID(),
			OrderNumber: order.Number(),
			CustomerID:  order.CustomerID(),
			Status:      string(order.Status()),
			Total:       order.Pricing().Total,
			CreatedAt:   order.CreatedAt(),
		})
	}
	return out
}

// FromInvoiceReference flattens either invoice variant.
func FromInvoiceReference(orderID string, ref domain.InvoiceReference) Invoice {
	blob := ref.Blob()
	out := Invoice{
		Kind:          string(ref.Kind()),
		InvoiceNumber: ref.InvoiceNumber(),
		IssuedAt:      ref.IssuedAt(),
		ContentType:   blob.ContentType,
		Size:          blob.Size,
		Checksum:      blob.Checksum,
		DownloadPath:  "/api/v1/orders/" + orderID + "/invoice/" + string(ref.Kind()),
	}
	switch inv := ref.(type) {
	case domain.AutoInvoice:
		out.IssuedBy = inv.GeneratedBy
	case domain.AdminInvoice:
		out.IssuedBy = inv.UploadedBy
		out.FileName = inv.FileName
		out.Notes = inv.Notes
	}
	return out
}

func FromInvoiceReferences(orderID string, refs []domain.InvoiceReference) []Invoice {
	out := make([]Invoice, 0, len(refs))
	for _, ref := range refs {
		out = append(out, FromInvoiceReference(orderID, ref))
	}
	return out
}
