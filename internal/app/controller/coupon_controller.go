package controller

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/internal/middleware"
)

type CouponController struct {
	couponService service.CouponService
	cartService   service.CartService
}

func NewCouponController(couponService service.CouponService, cartService service.CartService) *CouponController {
	return &CouponController{
		couponService: couponService,
		cartService:   cartService,
	}
}

type ApplyCouponRequest struct {
	Code        string          `json:"code" binding:"required"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
}

type CouponRequest struct {
	Code             string          `json:"code" binding:"required"`
	Kind             string          `json:"kind" binding:"required"`
	Value            decimal.Decimal `json:"value"`
	MinOrderAmount   decimal.Decimal `json:"min_order_amount"`
	StartDate        *time.Time      `json:"start_date"`
	EndDate          *time.Time      `json:"end_date"`
	IsActive         *bool           `json:"is_active"`
	MaxUses          int             `json:"max_uses"`
	SingleUsePerUser bool            `json:"single_use_per_user"`
	Description      string          `json:"description"`
}

// Apply applies a coupon code to the caller's cart, replacing any
// previously applied coupon
// POST /api/v1/cart/coupon
func (ctrl *CouponController) Apply(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid apply coupon request", map[string]interface{}{
			"cart_id": cart.ID,
			"error":   err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	var userID *uint
	if id, exists := middleware.GetUserID(c); exists {
		userID = &id
	}

	applied, err := ctrl.couponService.ApplyToCart(cart.ID, req.Code, userID, req.ShippingFee)
	if err != nil {
		ctrl.respondCouponError(c, err, cart.ID, req.Code)
		return
	}

	log.Info("Coupon applied to cart", map[string]interface{}{
		"cart_id":  cart.ID,
		"code":     req.Code,
		"discount": applied.DiscountAmount,
	})

	c.JSON(http.StatusOK, gin.H{"applied_coupon": applied})
}

// Remove detaches the applied coupon from the cart. Usage records and
// redemption counters are not rolled back.
// DELETE /api/v1/cart/coupon
func (ctrl *CouponController) Remove(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	if err := ctrl.couponService.RemoveFromCart(cart.ID); err != nil {
		log.Error("Failed to remove coupon from cart", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Coupon removed from cart", map[string]interface{}{
		"cart_id": cart.ID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Coupon removed from cart"})
}

// Preview validates a code against the cart without applying it
// GET /api/v1/cart/coupon/preview?code=SAVE10
func (ctrl *CouponController) Preview(c *gin.Context) {
	cart, ok := ctrl.resolveCart(c)
	if !ok {
		return
	}

	code := c.Query("code")
	if code == "" {
		errors.BadRequest(c, errors.ValidationRequired, "A coupon code is required")
		return
	}

	shippingFee := decimal.Zero
	if raw := c.Query("shipping_fee"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid shipping_fee parameter")
			return
		}
		shippingFee = parsed
	}

	var userID *uint
	if id, exists := middleware.GetUserID(c); exists {
		userID = &id
	}

	preview, err := ctrl.couponService.Preview(code, cart.ID, userID, shippingFee)
	if err != nil {
		ctrl.respondCouponError(c, err, cart.ID, code)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// CreateCoupon creates a coupon (admin)
// POST /api/v1/admin/coupons
func (ctrl *CouponController) CreateCoupon(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	coupon := couponFromRequest(&req)
	if err := ctrl.couponService.CreateCoupon(coupon); err != nil {
		if stderrors.Is(err, service.ErrCouponCodeExists) {
			errors.Conflict(c, errors.CouponCodeExists, "A coupon with this code already exists")
			return
		}
		if stderrors.Is(err, service.ErrInvalidCouponKind) {
			errors.BadRequest(c, errors.CouponInvalidKind, "Coupon kind must be percentage, fixed or free_shipping")
			return
		}
		log.Error("Failed to create coupon", err, map[string]interface{}{
			"code": req.Code,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Coupon created", map[string]interface{}{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
		"kind":      coupon.Kind,
	})

	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

// UpdateCoupon updates a coupon (admin)
// PUT /api/v1/admin/coupons/:id
func (ctrl *CouponController) UpdateCoupon(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	couponID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	coupon := couponFromRequest(&req)
	coupon.ID = couponID

	if err := ctrl.couponService.UpdateCoupon(coupon); err != nil {
		if stderrors.Is(err, service.ErrCouponNotFound) {
			errors.NotFound(c, errors.CouponNotFound, "Coupon not found")
			return
		}
		if stderrors.Is(err, service.ErrInvalidCouponKind) {
			errors.BadRequest(c, errors.CouponInvalidKind, "Coupon kind must be percentage, fixed or free_shipping")
			return
		}
		log.Error("Failed to update coupon", err, map[string]interface{}{
			"coupon_id": couponID,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// DeactivateCoupon soft-disables a coupon (admin)
// DELETE /api/v1/admin/coupons/:id
func (ctrl *CouponController) DeactivateCoupon(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	couponID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.couponService.DeactivateCoupon(couponID); err != nil {
		if stderrors.Is(err, service.ErrCouponNotFound) {
			errors.NotFound(c, errors.CouponNotFound, "Coupon not found")
			return
		}
		log.Error("Failed to deactivate coupon", err, map[string]interface{}{
			"coupon_id": couponID,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Coupon deactivated", map[string]interface{}{
		"coupon_id": couponID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Coupon deactivated"})
}

// ListCoupons lists coupons (admin)
// GET /api/v1/admin/coupons
func (ctrl *CouponController) ListCoupons(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	activeOnly := c.Query("active") == "true"
	coupons, err := ctrl.couponService.ListCoupons(activeOnly)
	if err != nil {
		log.Error("Failed to list coupons", err, nil)
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"count":   len(coupons),
	})
}

// GetUsageHistory lists redemptions of a coupon (admin)
// GET /api/v1/admin/coupons/:id/usages
func (ctrl *CouponController) GetUsageHistory(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	couponID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	usages, err := ctrl.couponService.GetUsageHistory(couponID)
	if err != nil {
		if stderrors.Is(err, service.ErrCouponNotFound) {
			errors.NotFound(c, errors.CouponNotFound, "Coupon not found")
			return
		}
		log.Error("Failed to fetch coupon usage history", err, map[string]interface{}{
			"coupon_id": couponID,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"usages": usages,
		"count":  len(usages),
	})
}

func (ctrl *CouponController) resolveCart(c *gin.Context) (*model.Cart, bool) {
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

// respondCouponError maps coupon validation failures to distinct
// error codes so clients can tell the caller exactly why a code was
// rejected.
func (ctrl *CouponController) respondCouponError(c *gin.Context, err error, cartID uint, code string) {
	log := middleware.GetLoggerFromContext(c)

	var minErr *service.MinimumOrderError
	switch {
	case stderrors.Is(err, service.ErrCouponNotFound):
		errors.NotFound(c, errors.CouponNotFound, "Coupon code not found")
	case stderrors.Is(err, service.ErrCouponInactive):
		errors.BadRequest(c, errors.CouponInactive, "This coupon is not active")
	case stderrors.Is(err, service.ErrCouponNotStarted):
		errors.BadRequest(c, errors.CouponNotStarted, "This coupon is not valid yet")
	case stderrors.Is(err, service.ErrCouponExpired):
		errors.BadRequest(c, errors.CouponExpired, "This coupon has expired")
	case stderrors.Is(err, service.ErrCouponUsageExhausted):
		errors.BadRequest(c, errors.CouponUsageExhausted, "This coupon has reached its usage limit")
	case stderrors.As(err, &minErr):
		errors.BadRequest(c, errors.CouponBelowMinimum, minErr.Error())
	case stderrors.Is(err, service.ErrCouponAlreadyUsed):
		errors.BadRequest(c, errors.CouponAlreadyUsed, "You have already used this coupon")
	case stderrors.Is(err, service.ErrCartNotFound):
		errors.NotFound(c, errors.CartNotFound, "Cart not found")
	case stderrors.Is(err, service.ErrCartNotActive):
		errors.Conflict(c, errors.CartNotActive, "This cart is no longer active")
	default:
		log.Error("Coupon operation failed", err, map[string]interface{}{
			"cart_id": cartID,
			"code":    code,
		})
		errors.InternalError(c, "")
	}
}

func couponFromRequest(req *CouponRequest) *model.Coupon {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	var startDate time.Time
	if req.StartDate != nil {
		startDate = *req.StartDate
	} else {
		startDate = time.Now()
	}
	return &model.Coupon{
		Code:             req.Code,
		Kind:             model.CouponKind(req.Kind),
		Value:            req.Value,
		MinOrderAmount:   req.MinOrderAmount,
		StartDate:        startDate,
		EndDate:          req.EndDate,
		IsActive:         isActive,
		MaxUses:          req.MaxUses,
		SingleUsePerUser: req.SingleUsePerUser,
		Description:      req.Description,
	}
}
