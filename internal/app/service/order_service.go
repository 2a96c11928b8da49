package service

import (
	"errors"

	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/pricing"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
)

type OrderService interface {
	CheckoutCart(cartID uint, userID *uint) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderByID(orderID uint) (*model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) error
}

type orderService struct {
	orderRepo repository.OrderRepository
	db        *gorm.DB
}

func NewOrderService(orderRepo repository.OrderRepository, db *gorm.DB) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		db:        db,
	}
}

// CheckoutCart converts a cart into an order: item snapshots become
// order items, stock is decremented under row locks, the applied coupon
// discount is carried onto the order total, and the cart is linked to
// the order and deactivated. The conversion is terminal; the cart
// rejects further mutation once is_active drops.
func (s *orderService) CheckoutCart(cartID uint, userID *uint) (*model.Order, error) {
	logger.Info("Checking out cart", map[string]interface{}{
		"cart_id": cartID,
		"user_id": userID,
	})

	var order *model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cart, cartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if !cart.IsActive {
			return ErrCartNotActive
		}

		var items []model.CartItem
		if err := tx.Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			logger.Warn("Cannot checkout: cart is empty", map[string]interface{}{
				"cart_id": cartID,
			})
			return ErrEmptyCart
		}

		totals := pricing.CartTotals(items)

		var orderItems []model.OrderItem
		for _, item := range items {
			var product model.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return err
			}
			if product.StockQuantity < item.Quantity {
				logger.Warn("Checkout failed: insufficient stock", map[string]interface{}{
					"cart_id":    cartID,
					"product_id": item.ProductID,
					"requested":  item.Quantity,
					"available":  product.StockQuantity,
				})
				return ErrInsufficientStock
			}
			if err := tx.Model(&product).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity)).Error; err != nil {
				return err
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Total:     pricing.ItemTotal(pricing.ItemSubtotal(item.UnitPrice, item.Quantity), item.TaxAmount, item.DiscountAmount),
			})
		}

		newOrder := model.Order{
			UserID:     userID,
			BranchID:   cart.BranchID,
			Subtotal:   totals.Subtotal,
			TaxAmount:  totals.Tax,
			Status:     model.OrderStatusPending,
			OrderItems: orderItems,
		}

		var cartCoupon model.CartCoupon
		err := tx.Where("cart_id = ?", cartID).
			Preload("Coupon").
			First(&cartCoupon).Error
		switch {
		case err == nil:
			newOrder.DiscountAmount = cartCoupon.DiscountAmount
			newOrder.CouponCode = cartCoupon.Coupon.Code
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no coupon applied
		default:
			return err
		}
		newOrder.TotalAmount = pricing.TotalAfterDiscount(totals.Total, newOrder.DiscountAmount)

		if err := tx.Create(&newOrder).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Cart{}).Where("id = ?", cartID).
			Updates(map[string]interface{}{
				"is_active":          false,
				"converted_order_id": newOrder.ID,
			}).Error; err != nil {
			return err
		}

		order = &newOrder
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Cart converted to order", map[string]interface{}{
		"cart_id":  cartID,
		"order_id": order.ID,
		"total":    order.TotalAmount,
	})
	return order, nil
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUser(userID)
}

func (s *orderService) GetOrderByID(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) error {
	if _, err := s.GetOrderByID(orderID); err != nil {
		return err
	}
	return s.orderRepo.UpdateStatus(orderID, status)
}
