package notify

import (
	"context"
	"log/slog"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

var _ ports.NotificationSender = (*LogSender)(nil)

// LogSender writes notifications to the structured log. It is the default
// when no broker is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With(slog.String("component", "order-notifications"))}
}

func (s *LogSender) Send(ctx context.Context, n ports.Notification) error {
	s.logger.InfoContext(ctx, n.Message,
		slog.String("order_id", n.OrderID),
		slog.String("order_number", n.OrderNumber),
		slog.String("event", n.Event),
		slog.String("status", n.Status),
		slog.Any("metadata", n.Metadata),
	)
	return nil
}
