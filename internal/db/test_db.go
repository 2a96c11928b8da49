package db

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/sokocart/sokocart-backend/internal/app/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter uint64

// SetupTestDB creates an in-memory SQLite database for testing.
// A plain ":memory:" DSN gives every pooled connection its own empty
// database, so queries issued outside the migrating connection (e.g.
// repository reads during a service transaction) would not see the
// schema. A uniquely named shared-cache DSN keeps one database per
// test visible to all connections.
func SetupTestDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared",
		atomic.AddUint64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&model.User{},
		&model.Branch{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Coupon{},
		&model.CartCoupon{},
		&model.CouponUsage{},
		&model.Order{},
		&model.OrderItem{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return db, nil
}

// CleanupTestDB cleans up the test database
func CleanupTestDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get DB instance: %v", err)
		return
	}
	sqlDB.Close()
}

// TruncateAllTables removes all data from tables
func TruncateAllTables(db *gorm.DB) error {
	tables := []string{
		"coupon_usages", "cart_coupons", "cart_items", "carts",
		"order_items", "orders", "coupons", "products", "branches", "users",
	}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
