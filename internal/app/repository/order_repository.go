package repository

import (
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderRepository interface {
	FindByID(id uint) (*model.Order, error)
	FindByUser(userID uint) ([]model.Order, error)
	UpdateStatus(orderID uint, status model.OrderStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("OrderItems").Preload("OrderItems.Product").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUser(userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Where("user_id = ?", userID).
		Preload("OrderItems").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to list orders from database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(orderID uint, status model.OrderStatus) error {
	err := r.db.Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
	if err != nil {
		logger.Error("Failed to update order status in database", err, map[string]interface{}{
			"order_id": orderID,
			"status":   status,
		})
		return err
	}
	return nil
}
