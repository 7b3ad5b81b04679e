package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "POSTGRES_DSN", "KAFKA_BROKERS", "AUTO_INVOICE_ON_CAPTURE", "INVOICE_RENDER_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, client.DefaultHostPort, cfg.TemporalAddress)
	require.Equal(t, "order-notifications", cfg.KafkaNotificationTopic)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	require.Equal(t, 30*time.Second, cfg.RenderTimeout)
	require.True(t, cfg.AutoInvoiceOnCapture)
	require.False(t, cfg.AllowCancelAfterShipment)
	require.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	require.Zero(t, cfg.ReservationPurgeInterval)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SNOWFLAKE_NODE", "12")
	t.Setenv("INVOICE_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("INVOICE_RENDER_TIMEOUT", "5s")
	t.Setenv("ORDER_LOCK_WAIT", "250ms")
	t.Setenv("ORDER_ALLOW_CANCEL_AFTER_SHIPMENT", "true")
	t.Setenv("AUTO_INVOICE_ON_CAPTURE", "0")
	t.Setenv("RESERVATION_TTL_MINUTES", "3")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, int64(12), cfg.SnowflakeNode)
	require.Equal(t, int64(1024), cfg.MaxUploadBytes)
	require.Equal(t, 5*time.Second, cfg.RenderTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.LockWait)
	require.True(t, cfg.AllowCancelAfterShipment)
	require.False(t, cfg.AutoInvoiceOnCapture)
	require.Equal(t, 3*time.Minute, cfg.ReservationTTL)
	require.True(t, cfg.TemporalDisabled)
	require.Equal(t, 25, cfg.PostgresMaxConns)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SNOWFLAKE_NODE":           "2048",
		"INVOICE_MAX_UPLOAD_BYTES": "-1",
		"INVOICE_RENDER_TIMEOUT":   "soon",
		"ORDER_LOCK_WAIT":          "0s",
		"RESERVATION_TTL_MINUTES":  "0",
		"REDIS_DB":                 "x",
		"POSTGRES_MAX_OPEN_CONNS":  "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.ErrorContains(t, err, key)
		})
	}
}
