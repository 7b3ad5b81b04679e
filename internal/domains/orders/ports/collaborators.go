package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when the per-order lock could not be taken in time.
var ErrLockNotAcquired = errors.New("order lock not acquired")

// Locker serialises mutations of a single order.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// IDGenerator issues order identifiers.
type IDGenerator interface {
	NewOrderID() string
}

// Notification is a customer facing message derived from a committed change.
type Notification struct {
	OrderID     string
	OrderNumber string
	Event       string
	Status      string
	Message     string
	Metadata    map[string]string
	OccurredAt  time.Time
}

// NotificationSender delivers notifications. Failures never roll back the change that produced them.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}
