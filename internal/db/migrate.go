package db

import (
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
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
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := createPartialIndexes(); err != nil {
		logger.Error("Failed to create partial indexes", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// createPartialIndexes adds indexes AutoMigrate cannot express.
// A user may have many inactive carts but at most one active one.
func createPartialIndexes() error {
	if DB.Dialector.Name() != "postgres" {
		return nil
	}
	return DB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_active_user
		ON carts (user_id)
		WHERE is_active AND user_id IS NOT NULL
	`).Error
}
