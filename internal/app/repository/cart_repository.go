package repository

import (
	"time"

	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
)

type CartRepository interface {
	CreateCart(cart *model.Cart) error
	FindCartByID(id uint) (*model.Cart, error)
	FindCartBySessionKey(sessionKey string) (*model.Cart, error)
	FindActiveCartByUser(userID uint) (*model.Cart, error)
	SaveCart(cart *model.Cart) error
	TouchCart(cartID uint) error
	DeactivateExpired(now time.Time) (int64, error)

	CreateItem(item *model.CartItem) error
	FindItemByID(id uint) (*model.CartItem, error)
	FindItemByCartAndProduct(cartID, productID uint) (*model.CartItem, error)
	FindItemsByCart(cartID uint) ([]model.CartItem, error)
	SaveItem(item *model.CartItem) error
	DeleteItem(id uint) error
	DeleteItemsByCart(cartID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) CreateCart(cart *model.Cart) error {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"session_key": cart.SessionKey,
		"user_id":     cart.UserID,
	})

	if err := r.db.Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"session_key": cart.SessionKey,
			"user_id":     cart.UserID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) FindCartByID(id uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Preload("Items").Preload("Items.Product").First(&cart, id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindCartBySessionKey(sessionKey string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Where("session_key = ?", sessionKey).
		Preload("Items").
		Preload("Items.Product").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindActiveCartByUser(userID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Preload("Items").
		Preload("Items.Product").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) SaveCart(cart *model.Cart) error {
	if err := r.db.Save(cart).Error; err != nil {
		logger.Error("Failed to save cart in database", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return err
	}
	return nil
}

// TouchCart bumps the cart's updated_at so it doubles as a freshness
// signal for the expiry sweeper.
func (r *cartRepository) TouchCart(cartID uint) error {
	err := r.db.Model(&model.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now()).Error
	if err != nil {
		logger.Error("Failed to touch cart in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeactivateExpired(now time.Time) (int64, error) {
	result := r.db.Model(&model.Cart{}).
		Where("is_active = ? AND expires_at < ?", true, now).
		Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate expired carts", result.Error, nil)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) CreateItem(item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	if err := r.db.Create(item).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}
	return r.TouchCart(item.CartID)
}

func (r *cartRepository) FindItemByID(id uint) (*model.CartItem, error) {
	var item model.CartItem
	if err := r.db.Preload("Product").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindItemByCartAndProduct(cartID, productID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindItemsByCart(cartID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.Where("cart_id = ?", cartID).
		Preload("Product").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to find cart items in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) SaveItem(item *model.CartItem) error {
	if err := r.db.Save(item).Error; err != nil {
		logger.Error("Failed to save cart item in database", err, map[string]interface{}{
			"cart_item_id": item.ID,
			"cart_id":      item.CartID,
		})
		return err
	}
	return r.TouchCart(item.CartID)
}

func (r *cartRepository) DeleteItem(id uint) error {
	var item model.CartItem
	if err := r.db.First(&item, id).Error; err != nil {
		return err
	}
	if err := r.db.Delete(&model.CartItem{}, id).Error; err != nil {
		logger.Error("Failed to delete cart item from database", err, map[string]interface{}{
			"cart_item_id": id,
		})
		return err
	}
	return r.TouchCart(item.CartID)
}

func (r *cartRepository) DeleteItemsByCart(cartID uint) error {
	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return r.TouchCart(cartID)
}
