package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/pricing"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponInactive       = errors.New("coupon is not active")
	ErrCouponNotStarted     = errors.New("coupon is not yet valid")
	ErrCouponExpired        = errors.New("coupon has expired")
	ErrCouponUsageExhausted = errors.New("coupon usage limit reached")
	ErrCouponAlreadyUsed    = errors.New("coupon has already been used")
	ErrCouponCodeExists     = errors.New("coupon code already exists")
	ErrInvalidCouponKind    = errors.New("invalid coupon kind")
)

// MinimumOrderError reports a cart total below the coupon's minimum.
// It is a distinct type so the message can carry the actual minimum.
type MinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("cart total is below the minimum order amount of %s for this coupon", e.Minimum.StringFixed(2))
}

// CouponPreview is the result of validating a code without applying it.
type CouponPreview struct {
	Coupon   *model.Coupon   `json:"coupon"`
	Discount decimal.Decimal `json:"discount"`
}

type CouponService interface {
	Validate(coupon *model.Coupon, cartTotal *decimal.Decimal, userID *uint) error
	Preview(code string, cartID uint, userID *uint, shippingFee decimal.Decimal) (*CouponPreview, error)
	ApplyToCart(cartID uint, code string, userID *uint, shippingFee decimal.Decimal) (*model.CartCoupon, error)
	RemoveFromCart(cartID uint) error

	CreateCoupon(coupon *model.Coupon) error
	UpdateCoupon(coupon *model.Coupon) error
	DeactivateCoupon(couponID uint) error
	ListCoupons(activeOnly bool) ([]model.Coupon, error)
	GetUsageHistory(couponID uint) ([]model.CouponUsage, error)
}

type couponService struct {
	couponRepo repository.CouponRepository
	cartRepo   repository.CartRepository
	db         *gorm.DB
}

func NewCouponService(
	couponRepo repository.CouponRepository,
	cartRepo repository.CartRepository,
	db *gorm.DB,
) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		cartRepo:   cartRepo,
		db:         db,
	}
}

// Validate runs the fixed-order validity checks for a coupon in the
// context of an optional cart total and an optional user. The order is
// part of the contract: each branch yields a distinct reason and an
// earlier failure masks the later ones.
func (s *couponService) Validate(coupon *model.Coupon, cartTotal *decimal.Decimal, userID *uint) error {
	now := time.Now()

	if !coupon.IsActive {
		return ErrCouponInactive
	}
	if now.Before(coupon.StartDate) {
		return ErrCouponNotStarted
	}
	if coupon.EndDate != nil && now.After(*coupon.EndDate) {
		return ErrCouponExpired
	}
	if coupon.MaxUses > 0 && coupon.CurrentUses >= coupon.MaxUses {
		return ErrCouponUsageExhausted
	}
	if cartTotal != nil && cartTotal.LessThan(coupon.MinOrderAmount) {
		return &MinimumOrderError{Minimum: coupon.MinOrderAmount}
	}
	if userID != nil && coupon.SingleUsePerUser {
		_, err := s.couponRepo.FindUsage(coupon.ID, *userID)
		if err == nil {
			return ErrCouponAlreadyUsed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

// Preview validates a code against the live cart and reports the
// discount it would yield, without binding or recording anything.
func (s *couponService) Preview(code string, cartID uint, userID *uint, shippingFee decimal.Decimal) (*CouponPreview, error) {
	coupon, err := s.couponRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	items, err := s.cartRepo.FindItemsByCart(cartID)
	if err != nil {
		return nil, err
	}
	subtotal := pricing.CartTotals(items).Subtotal

	if err := s.Validate(coupon, &subtotal, userID); err != nil {
		return nil, err
	}

	discount, err := pricing.Discount(coupon.Kind, coupon.Value, subtotal, shippingFee)
	if err != nil {
		return nil, err
	}
	return &CouponPreview{Coupon: coupon, Discount: discount}, nil
}

// ApplyToCart re-validates the coupon against the live cart subtotal and
// binds it to the cart, overwriting any previously applied coupon. For
// an authenticated user a CouponUsage row is recorded and the coupon's
// usage counter is bumped with an atomic increment-if-below-cap, all in
// one transaction. A validation failure leaves any existing binding
// untouched.
func (s *couponService) ApplyToCart(cartID uint, code string, userID *uint, shippingFee decimal.Decimal) (*model.CartCoupon, error) {
	logger.Info("Applying coupon to cart", map[string]interface{}{
		"cart_id": cartID,
		"code":    code,
		"user_id": userID,
	})

	var binding *model.CartCoupon
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var coupon model.Coupon
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("LOWER(code) = LOWER(?)", code).
			First(&coupon).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCouponNotFound
			}
			return err
		}

		var cart model.Cart
		if err := tx.First(&cart, cartID).Error; err != nil {
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
		subtotal := pricing.CartTotals(items).Subtotal

		if err := s.Validate(&coupon, &subtotal, userID); err != nil {
			return err
		}

		discount, err := pricing.Discount(coupon.Kind, coupon.Value, subtotal, shippingFee)
		if err != nil {
			return err
		}

		// One coupon per cart: overwrite any existing binding.
		var existing model.CartCoupon
		err = tx.Where("cart_id = ?", cartID).First(&existing).Error
		switch {
		case err == nil:
			existing.CouponID = coupon.ID
			existing.DiscountAmount = discount
			existing.AppliedAt = time.Now()
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			binding = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := model.CartCoupon{
				CartID:         cartID,
				CouponID:       coupon.ID,
				DiscountAmount: discount,
				AppliedAt:      time.Now(),
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
			binding = &created
		default:
			return err
		}

		if userID == nil {
			return nil
		}

		// Usage is recorded for any authenticated user, single-use flag
		// or not; the flag only gates future validation. A repeat apply
		// of the same coupon by the same user refreshes the existing
		// audit row instead of growing the counter again.
		var usage model.CouponUsage
		err = tx.Where("coupon_id = ? AND user_id = ?", coupon.ID, *userID).
			First(&usage).Error
		switch {
		case err == nil:
			usage.DiscountAmount = discount
			usage.UsedAt = time.Now()
			return tx.Save(&usage).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fall through to record a fresh redemption
		default:
			return err
		}

		result := tx.Model(&model.Coupon{}).
			Where("id = ? AND (max_uses = 0 OR current_uses < max_uses)", coupon.ID).
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Another request consumed the last redemption between the
			// validation read and the increment.
			return ErrCouponUsageExhausted
		}

		usage = model.CouponUsage{
			CouponID:       coupon.ID,
			UserID:         *userID,
			DiscountAmount: discount,
			UsedAt:         time.Now(),
		}
		return tx.Create(&usage).Error
	})
	if err != nil {
		logger.Warn("Coupon application failed", map[string]interface{}{
			"cart_id": cartID,
			"code":    code,
			"reason":  err.Error(),
		})
		return nil, err
	}

	logger.Info("Coupon applied to cart", map[string]interface{}{
		"cart_id":   cartID,
		"coupon_id": binding.CouponID,
		"discount":  binding.DiscountAmount,
	})
	return binding, nil
}

// RemoveFromCart un-applies the coupon from the cart. Redemption counts
// and the usage audit are permanent; only the binding row is deleted.
func (s *couponService) RemoveFromCart(cartID uint) error {
	logger.Info("Removing coupon from cart", map[string]interface{}{
		"cart_id": cartID,
	})
	return s.couponRepo.DeleteCartCoupon(cartID)
}

func (s *couponService) CreateCoupon(coupon *model.Coupon) error {
	switch coupon.Kind {
	case model.CouponPercentage, model.CouponFixed, model.CouponFreeShipping:
	default:
		return ErrInvalidCouponKind
	}

	existing, err := s.couponRepo.FindByCode(coupon.Code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		logger.Warn("Coupon creation rejected: code exists", map[string]interface{}{
			"code": coupon.Code,
		})
		return ErrCouponCodeExists
	}

	if coupon.StartDate.IsZero() {
		coupon.StartDate = time.Now()
	}
	return s.couponRepo.Create(coupon)
}

func (s *couponService) UpdateCoupon(coupon *model.Coupon) error {
	switch coupon.Kind {
	case model.CouponPercentage, model.CouponFixed, model.CouponFreeShipping:
	default:
		return ErrInvalidCouponKind
	}
	return s.couponRepo.Update(coupon)
}

func (s *couponService) DeactivateCoupon(couponID uint) error {
	coupon, err := s.couponRepo.FindByID(couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCouponNotFound
		}
		return err
	}
	coupon.IsActive = false
	return s.couponRepo.Update(coupon)
}

func (s *couponService) ListCoupons(activeOnly bool) ([]model.Coupon, error) {
	return s.couponRepo.FindAll(activeOnly)
}

func (s *couponService) GetUsageHistory(couponID uint) ([]model.CouponUsage, error) {
	if _, err := s.couponRepo.FindByID(couponID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return s.couponRepo.FindUsagesByCoupon(couponID)
}
