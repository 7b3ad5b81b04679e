package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

// DefaultTopic receives order notifications when no topic is configured.
const DefaultTopic = "order-notifications"

var _ ports.NotificationSender = (*KafkaSender)(nil)

type kafkaMessage struct {
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	Event       string            `json:"event"`
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// KafkaSender publishes notifications keyed by order id so consumers see
// them in order per order.
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaSender dials the brokers with an idempotent sync producer.
func NewKafkaSender(brokers []string, topic string, logger *slog.Logger) (*KafkaSender, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaSenderWithProducer(producer, topic, logger), nil
}

// NewKafkaSenderWithProducer wraps an existing producer.
func NewKafkaSenderWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaSender {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSender{
		producer: producer,
		topic:    topic,
		logger:   logger.With(slog.String("component", "kafka-producer")),
	}
}

func (s *KafkaSender) Send(ctx context.Context, n ports.Notification) error {
	payload, err := json.Marshal(kafkaMessage{
		OrderID:     n.OrderID,
		OrderNumber: n.OrderNumber,
		Event:       n.Event,
		Status:      n.Status,
		Message:     n.Message,
		Metadata:    n.Metadata,
		OccurredAt:  n.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic:     s.topic,
		Key:       sarama.StringEncoder(n.OrderID),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(n.Event)},
		},
	}
	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send notification %s for order %s: %w", n.Event, n.OrderID, err)
	}
	s.logger.DebugContext(ctx, "notification published",
		slog.String("topic", s.topic),
		slog.String("order_id", n.OrderID),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (s *KafkaSender) Close() error {
	if err := s.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
