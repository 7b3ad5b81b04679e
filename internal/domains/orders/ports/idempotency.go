package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the same key was used with a different payload.
var ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

// IdempotencyRecord binds a client-supplied key to the order it created.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     string
	CreatedAt   time.Time
}

// IdempotencyStore persists idempotency keys so order placement retries can be replayed safely.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save stores the record unless the key is already taken. When it is, the stored record
	// is returned; if its hash differs, ErrIdempotencyConflict is returned alongside it.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
