package controller

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/internal/middleware"
)

type CartController struct {
	cartService  service.CartService
	orderService service.OrderService
}

func NewCartController(cartService service.CartService, orderService service.OrderService) *CartController {
	return &CartController{
		cartService:  cartService,
		orderService: orderService,
	}
}

type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// resolveCart finds or creates the caller's cart. Authenticated users
// get their single active cart; guests are identified by the
// X-Session-Key header.
func (ctrl *CartController) resolveCart(c *gin.Context) (*model.Cart, bool) {
	log := middleware.GetLoggerFromContext(c)

	var userID *uint
	if id, ok := middleware.GetUserID(c); ok {
		userID = &id
	}
	sessionKey, _ := middleware.GetSessionKey(c)

	if userID == nil && sessionKey == "" {
		errors.BadRequest(c, errors.ValidationRequired, "Authentication or an X-Session-Key header is required")
		return nil, false
	}

	cart, err := ctrl.cartService.GetOrCreateCart(userID, sessionKey)
	if err != nil {
		log.Error("Failed to resolve cart", err, map[string]interface{}{
			"user_id":     userID,
			"session_key": sessionKey,
		})
		errors.InternalError(c, "")
		return nil, false
	}
	return cart, true
}

// GetCart returns the caller's cart with derived totals
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	summary, err := ctrl.cartService.GetSummary(cart.ID)
	if err != nil {
		log.Error("Failed to fetch cart summary", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Cart fetched successfully", map[string]interface{}{
		"cart_id": cart.ID,
		"items":   len(summary.Cart.Items),
	})

	c.JSON(http.StatusOK, summary)
}

// AddItem adds a product to the cart, merging quantities when the
// product is already in it
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add item request", map[string]interface{}{
			"cart_id": cart.ID,
			"error":   err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	item, err := ctrl.cartService.AddItem(cart.ID, req.ProductID, req.Quantity)
	if err != nil {
		ctrl.respondCartError(c, err, cart.ID)
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"cart_id":    cart.ID,
		"product_id": req.ProductID,
		"quantity":   item.Quantity,
	})

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// UpdateItem changes a cart item's quantity
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update item request", map[string]interface{}{
			"cart_id": cart.ID,
			"item_id": itemID,
			"error":   err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	item, err := ctrl.cartService.UpdateItem(cart.ID, itemID, req.Quantity)
	if err != nil {
		ctrl.respondCartError(c, err, cart.ID)
		return
	}

	log.Info("Cart item updated", map[string]interface{}{
		"cart_id":  cart.ID,
		"item_id":  itemID,
		"quantity": item.Quantity,
	})

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// RemoveItem removes an item from the cart
// DELETE /api/v1/cart/items/:id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.cartService.RemoveItem(cart.ID, itemID); err != nil {
		ctrl.respondCartError(c, err, cart.ID)
		return
	}

	log.Info("Cart item removed", map[string]interface{}{
		"cart_id": cart.ID,
		"item_id": itemID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// Clear removes every item from the cart
// DELETE /api/v1/cart
func (ctrl *CartController) Clear(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.Clear(cart.ID); err != nil {
		ctrl.respondCartError(c, err, cart.ID)
		return
	}

	log.Info("Cart cleared", map[string]interface{}{
		"cart_id": cart.ID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully"})
}

// Checkout converts the cart into an order
// POST /api/v1/cart/checkout
func (ctrl *CartController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	var userID *uint
	if id, exists := middleware.GetUserID(c); exists {
		userID = &id
	}

	order, err := ctrl.orderService.CheckoutCart(cart.ID, userID)
	if err != nil {
		if stderrors.Is(err, service.ErrEmptyCart) {
			errors.BadRequest(c, errors.CartEmpty, "Cannot check out an empty cart")
			return
		}
		if stderrors.Is(err, service.ErrInsufficientStock) {
			errors.BadRequest(c, errors.ProductOutOfStock, "One or more items exceed available stock")
			return
		}
		ctrl.respondCartError(c, err, cart.ID)
		return
	}

	log.Info("Cart checked out", map[string]interface{}{
		"cart_id":  cart.ID,
		"order_id": order.ID,
		"total":    order.TotalAmount,
	})

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (ctrl *CartController) respondCartError(c *gin.Context, err error, cartID uint) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case stderrors.Is(err, service.ErrCartNotFound):
		errors.NotFound(c, errors.CartNotFound, "Cart not found")
	case stderrors.Is(err, service.ErrCartNotActive):
		errors.Conflict(c, errors.CartNotActive, "This cart is no longer active")
	case stderrors.Is(err, service.ErrCartItemNotFound):
		errors.NotFound(c, errors.CartItemNotFound, "Cart item not found")
	case stderrors.Is(err, service.ErrItemNotInCart):
		errors.Conflict(c, errors.CartItemConflict, "Cart item belongs to a different cart")
	case stderrors.Is(err, service.ErrProductNotFound):
		errors.NotFound(c, errors.ProductNotFound, "Product not found")
	case stderrors.Is(err, service.ErrInsufficientStock):
		errors.BadRequest(c, errors.ProductOutOfStock, "Insufficient stock for the requested quantity")
	case stderrors.Is(err, service.ErrInvalidQuantity):
		errors.BadRequest(c, errors.ValidationInvalidQuantity, "Quantity must be greater than zero")
	default:
		log.Error("Cart operation failed", err, map[string]interface{}{
			"cart_id": cartID,
		})
		errors.InternalError(c, "")
	}
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidID, "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(id), true
}
