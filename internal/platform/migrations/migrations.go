package migrations

import (
	"gorm.io/gorm"

	ordersgorm "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/persistence/postgres"
)

// Run applies the schema for the orders bounded context. Adapters never automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(ordersgorm.Models()...); err != nil {
		return err
	}
	// Purger scans only rows holding a reservation.
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_orders_reservation_open
		ON orders (reservation_at) WHERE reservation_token IS NOT NULL`).Error
}
