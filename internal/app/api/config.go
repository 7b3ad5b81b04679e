package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/notify"
)

const (
	defaultMaxUploadBytes int64 = 5 << 20
	defaultRenderTimeout        = 30 * time.Second
	defaultLockWait             = 5 * time.Second
	defaultReservationTTL       = 15 * time.Minute
	defaultSellerName           = "Order Lifecycle"
	maxSnowflakeNode            = 1023
)

// Config carries environment-driven settings for the order processes.
type Config struct {
	Port              string
	PostgresDSN       string
	PostgresMaxConns  int
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers           []string
	KafkaNotificationTopic string

	SnowflakeNode            int64
	MaxUploadBytes           int64
	RenderTimeout            time.Duration
	LockWait                 time.Duration
	AllowCancelAfterShipment bool
	AutoInvoiceOnCapture     bool
	SellerName               string
	ReservationTTL           time.Duration
	// ReservationPurgeInterval is zero when the purger should run once and exit.
	ReservationPurgeInterval time.Duration
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:                   envDefault("PORT", "8080"),
		PostgresDSN:            strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:        envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace:      envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:       isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		RedisAddr:              strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaNotificationTopic: envDefault("KAFKA_NOTIFICATION_TOPIC", notify.DefaultTopic),
		MaxUploadBytes:         defaultMaxUploadBytes,
		RenderTimeout:          defaultRenderTimeout,
		LockWait:               defaultLockWait,
		AutoInvoiceOnCapture:   true,
		SellerName:             envDefault("INVOICE_SELLER_NAME", defaultSellerName),
		ReservationTTL:         defaultReservationTTL,
	}

	if raw := strings.TrimSpace(os.Getenv("POSTGRES_MAX_OPEN_CONNS")); raw != "" {
		conns, err := strconv.Atoi(raw)
		if err != nil || conns <= 0 {
			return Config{}, fmt.Errorf("POSTGRES_MAX_OPEN_CONNS must be a positive integer")
		}
		cfg.PostgresMaxConns = conns
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil || db < 0 {
			return Config{}, fmt.Errorf("REDIS_DB must be a non-negative integer")
		}
		cfg.RedisDB = db
	}
	if raw := strings.TrimSpace(os.Getenv("SNOWFLAKE_NODE")); raw != "" {
		node, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || node < 0 || node > maxSnowflakeNode {
			return Config{}, fmt.Errorf("SNOWFLAKE_NODE must be an integer between 0 and %d", maxSnowflakeNode)
		}
		cfg.SnowflakeNode = node
	}
	if raw := strings.TrimSpace(os.Getenv("INVOICE_MAX_UPLOAD_BYTES")); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("INVOICE_MAX_UPLOAD_BYTES must be a positive integer")
		}
		cfg.MaxUploadBytes = limit
	}
	var err error
	if cfg.RenderTimeout, err = positiveDuration("INVOICE_RENDER_TIMEOUT", cfg.RenderTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LockWait, err = positiveDuration("ORDER_LOCK_WAIT", cfg.LockWait); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("ORDER_ALLOW_CANCEL_AFTER_SHIPMENT")); raw != "" {
		cfg.AllowCancelAfterShipment = isTruthy(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("AUTO_INVOICE_ON_CAPTURE")); raw != "" {
		cfg.AutoInvoiceOnCapture = isTruthy(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("RESERVATION_TTL_MINUTES")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("RESERVATION_TTL_MINUTES must be a positive integer")
		}
		cfg.ReservationTTL = time.Duration(minutes) * time.Minute
	}
	if raw := strings.TrimSpace(os.Getenv("RESERVATION_PURGE_INTERVAL_MINUTES")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("RESERVATION_PURGE_INTERVAL_MINUTES must be a positive integer")
		}
		cfg.ReservationPurgeInterval = time.Duration(minutes) * time.Minute
	}
	return cfg, nil
}

func positiveDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 30s", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
