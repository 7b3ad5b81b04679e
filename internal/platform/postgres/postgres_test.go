package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	require.Equal(t, defaultMaxOpenConns, opts.MaxOpenConns)
	require.Equal(t, defaultMaxOpenConns/2, opts.MaxIdleConns)
	require.Equal(t, defaultConnMaxLifetime, opts.ConnMaxLifetime)

	opts = Options{MaxOpenConns: 4, MaxIdleConns: 9, ConnMaxLifetime: time.Minute}.withDefaults()
	require.Equal(t, 4, opts.MaxOpenConns)
	require.Equal(t, 2, opts.MaxIdleConns)
	require.Equal(t, time.Minute, opts.ConnMaxLifetime)
}

func TestConnect_RejectsEmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), Options{DSN: "  "})
	require.ErrorContains(t, err, "DSN is empty")
}
