package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetOrders lists the authenticated user's orders
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns a single order owned by the caller
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(id)
	if err != nil {
		if stderrors.Is(err, service.ErrOrderNotFound) {
			errors.NotFound(c, errors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to fetch order", err, map[string]interface{}{
			"order_id": id,
		})
		errors.InternalError(c, "")
		return
	}

	role, _ := middleware.GetUserRole(c)
	if role != model.RoleAdmin && (order.UserID == nil || *order.UserID != userID) {
		errors.NotFound(c, errors.OrderNotFound, "Order not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus changes an order's status (admin)
// PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	if err := ctrl.orderService.UpdateOrderStatus(id, model.OrderStatus(req.Status)); err != nil {
		if stderrors.Is(err, service.ErrOrderNotFound) {
			errors.NotFound(c, errors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": id,
			"status":   req.Status,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": id,
		"status":   req.Status,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
}
