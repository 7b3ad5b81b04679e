package observability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/observability/service"

// Service decorates the order service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core order service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.String("order.customer_id", input.CustomerID), attribute.Int("order.items", len(input.Items))))
	defer span.End()

	s.logInfo(ctx, "creating order", slog.String("order.customer_id", input.CustomerID))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order", slog.String("order.customer_id", input.CustomerID))
	}
	span.SetAttributes(attribute.String("order.id", result.ID()))
	s.metrics.recordCreated(ctx)
	s.logInfo(ctx, "order created",
		slog.String("order.id", result.ID()),
		slog.String("order.number", result.Number()),
		slog.String("order.total", result.Pricing().Total.StringFixed(2)))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id))
	}
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, input ordertypes.ListOrdersInput) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(attribute.String("order.status", input.Status)))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.String("order.status", input.Status))
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) RequestTransition(ctx context.Context, input ordertypes.TransitionInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.RequestTransition",
		trace.WithAttributes(attribute.String("order.id", input.OrderID), attribute.String("order.target_status", input.Status)))
	defer span.End()

	s.logInfo(ctx, "requesting status transition",
		slog.String("order.id", input.OrderID),
		slog.String("order.target_status", input.Status),
		slog.String("actor", input.Actor))
	result, err := s.inner.RequestTransition(ctx, input)
	if err != nil {
		s.metrics.recordTransitionRejected(ctx, input.Status)
		return nil, s.handleError(ctx, span, err, "status transition rejected",
			slog.String("order.id", input.OrderID), slog.String("order.target_status", input.Status))
	}
	s.metrics.recordTransition(ctx, result.Status())
	s.logInfo(ctx, "status transition applied", slog.String("order.id", result.ID()), slog.String("status", string(result.Status())))
	return result, nil
}

func (s *Service) AddAdminNote(ctx context.Context, input ordertypes.AdminNoteInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AddAdminNote", trace.WithAttributes(attribute.String("order.id", input.OrderID)))
	defer span.End()

	result, err := s.inner.AddAdminNote(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to add admin note", slog.String("order.id", input.OrderID))
	}
	s.logInfo(ctx, "admin note added", slog.String("order.id", input.OrderID), slog.String("author", input.Author))
	return result, nil
}

func (s *Service) AppendShippingEvent(ctx context.Context, input ordertypes.ShippingEventInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AppendShippingEvent",
		trace.WithAttributes(attribute.String("order.id", input.OrderID), attribute.String("shipping.label", input.Label)))
	defer span.End()

	result, err := s.inner.AppendShippingEvent(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to append shipping event", slog.String("order.id", input.OrderID))
	}
	s.logInfo(ctx, "shipping event appended", slog.String("order.id", input.OrderID), slog.String("shipping.label", input.Label))
	return result, nil
}

func (s *Service) RecordPaymentAttempt(ctx context.Context, input ordertypes.PaymentAttemptInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.RecordPaymentAttempt",
		trace.WithAttributes(
			attribute.String("order.id", input.OrderID),
			attribute.String("payment.attempt_id", input.AttemptID),
			attribute.String("payment.outcome", input.Outcome)))
	defer span.End()

	result, err := s.inner.RecordPaymentAttempt(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to record payment attempt",
			slog.String("order.id", input.OrderID), slog.String("payment.attempt_id", input.AttemptID))
	}
	s.metrics.recordPayment(ctx, input.Outcome)
	s.logInfo(ctx, "payment attempt recorded",
		slog.String("order.id", input.OrderID),
		slog.String("payment.outcome", input.Outcome),
		slog.String("status", string(result.Status())))
	return result, nil
}

func (s *Service) GenerateAutoInvoice(ctx context.Context, input ordertypes.GenerateInvoiceInput) (domain.AutoInvoice, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GenerateAutoInvoice", trace.WithAttributes(attribute.String("order.id", input.OrderID)))
	defer span.End()

	start := time.Now()
	s.logInfo(ctx, "generating auto invoice", slog.String("order.id", input.OrderID), slog.String("actor", input.Actor))
	result, err := s.inner.GenerateAutoInvoice(ctx, input)
	if err != nil {
		return domain.AutoInvoice{}, s.handleError(ctx, span, err, "failed to generate auto invoice", slog.String("order.id", input.OrderID))
	}
	s.metrics.recordInvoice(ctx, domain.InvoiceKindAuto, time.Since(start))
	span.SetAttributes(attribute.String("invoice.number", result.Number))
	s.logInfo(ctx, "auto invoice generated", slog.String("order.id", input.OrderID), slog.String("invoice.number", result.Number))
	return result, nil
}

func (s *Service) UploadAdminInvoice(ctx context.Context, input ordertypes.UploadAdminInvoiceInput) (domain.AdminInvoice, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UploadAdminInvoice",
		trace.WithAttributes(
			attribute.String("order.id", input.OrderID),
			attribute.String("invoice.number", input.InvoiceNumber),
			attribute.Int("invoice.size", len(input.Data))))
	defer span.End()

	start := time.Now()
	result, err := s.inner.UploadAdminInvoice(ctx, input)
	if err != nil {
		return domain.AdminInvoice{}, s.handleError(ctx, span, err, "failed to upload admin invoice",
			slog.String("order.id", input.OrderID), slog.String("invoice.number", input.InvoiceNumber))
	}
	s.metrics.recordInvoice(ctx, domain.InvoiceKindAdmin, time.Since(start))
	s.logInfo(ctx, "admin invoice uploaded",
		slog.String("order.id", input.OrderID),
		slog.String("invoice.number", result.Number),
		slog.String("uploaded_by", result.UploadedBy))
	return result, nil
}

func (s *Service) DeleteAdminInvoice(ctx context.Context, input ordertypes.DeleteAdminInvoiceInput) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.DeleteAdminInvoice", trace.WithAttributes(attribute.String("order.id", input.OrderID)))
	defer span.End()

	if err := s.inner.DeleteAdminInvoice(ctx, input); err != nil {
		return s.handleError(ctx, span, err, "failed to delete admin invoice", slog.String("order.id", input.OrderID))
	}
	s.logInfo(ctx, "admin invoice deleted", slog.String("order.id", input.OrderID), slog.String("actor", input.Actor))
	return nil
}

func (s *Service) ListInvoices(ctx context.Context, orderID string) ([]domain.InvoiceReference, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListInvoices", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	result, err := s.inner.ListInvoices(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list invoices", slog.String("order.id", orderID))
	}
	span.SetAttributes(attribute.Int("invoices.count", len(result)))
	return result, nil
}

func (s *Service) DownloadInvoice(ctx context.Context, input ordertypes.DownloadInvoiceInput) (*ordertypes.InvoiceDownload, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.DownloadInvoice",
		trace.WithAttributes(attribute.String("order.id", input.OrderID), attribute.String("invoice.kind", input.Kind)))
	defer span.End()

	result, err := s.inner.DownloadInvoice(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to open invoice", slog.String("order.id", input.OrderID), slog.String("invoice.kind", input.Kind))
	}
	return result, nil
}

func (s *Service) ExpireReservations(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ExpireReservations", trace.WithAttributes(attribute.String("max_age", maxAge.String())))
	defer span.End()

	count, err := s.inner.ExpireReservations(ctx, maxAge)
	if err != nil {
		return count, s.handleError(ctx, span, err, "failed to expire invoice reservations", slog.Int("expired", count))
	}
	s.metrics.recordExpired(ctx, count)
	span.SetAttributes(attribute.Int("reservations.expired", count))
	if count > 0 {
		s.logInfo(ctx, "expired invoice reservations", slog.Int("expired", count))
	}
	return count, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	ordersCreated       metric.Int64Counter
	transitions         metric.Int64Counter
	transitionsRejected metric.Int64Counter
	paymentAttempts     metric.Int64Counter
	invoicesStored      metric.Int64Counter
	invoiceDuration     metric.Float64Histogram
	reservationsExpired metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("orders.service.orders_created", metric.WithDescription("Number of orders created"))
	transitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Status transitions applied"))
	rejected, _ := m.Int64Counter("orders.service.transitions_rejected", metric.WithDescription("Status transitions rejected"))
	payments, _ := m.Int64Counter("orders.service.payment_attempts", metric.WithDescription("Payment attempts recorded"))
	invoices, _ := m.Int64Counter("orders.service.invoices_generated", metric.WithDescription("Invoices stored per kind"))
	duration, _ := m.Float64Histogram("orders.service.invoice_duration", metric.WithDescription("Time spent producing an invoice"), metric.WithUnit("s"))
	expired, _ := m.Int64Counter("orders.service.reservations_expired", metric.WithDescription("Stale invoice reservations cleared"))
	return serviceMetrics{
		ordersCreated:       ordersCreated,
		transitions:         transitions,
		transitionsRejected: rejected,
		paymentAttempts:     payments,
		invoicesStored:      invoices,
		invoiceDuration:     duration,
		reservationsExpired: expired,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context) {
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

func (m serviceMetrics) recordTransitionRejected(ctx context.Context, target string) {
	if m.transitionsRejected != nil {
		m.transitionsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("order.target_status", target)))
	}
}

func (m serviceMetrics) recordPayment(ctx context.Context, outcome string) {
	if m.paymentAttempts != nil {
		m.paymentAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.outcome", outcome)))
	}
}

func (m serviceMetrics) recordInvoice(ctx context.Context, kind domain.InvoiceKind, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("invoice.kind", string(kind)))
	if m.invoicesStored != nil {
		m.invoicesStored.Add(ctx, 1, attrs)
	}
	if m.invoiceDuration != nil {
		m.invoiceDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (m serviceMetrics) recordExpired(ctx context.Context, count int) {
	if m.reservationsExpired != nil && count > 0 {
		m.reservationsExpired.Add(ctx, int64(count))
	}
}

var _ ports.Service = (*Service)(nil)
