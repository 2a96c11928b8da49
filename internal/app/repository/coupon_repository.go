package repository

import (
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
)

type CouponRepository interface {
	Create(coupon *model.Coupon) error
	FindByID(id uint) (*model.Coupon, error)
	FindByCode(code string) (*model.Coupon, error)
	FindAll(activeOnly bool) ([]model.Coupon, error)
	Update(coupon *model.Coupon) error
	Delete(id uint) error

	FindCartCoupon(cartID uint) (*model.CartCoupon, error)
	DeleteCartCoupon(cartID uint) error

	FindUsage(couponID, userID uint) (*model.CouponUsage, error)
	FindUsagesByCoupon(couponID uint) ([]model.CouponUsage, error)
	FindAllUsages() ([]model.CouponUsage, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(coupon *model.Coupon) error {
	logger.Debug("Creating coupon in database", map[string]interface{}{
		"code": coupon.Code,
		"kind": coupon.Kind,
	})

	if err := r.db.Create(coupon).Error; err != nil {
		logger.Error("Failed to create coupon in database", err, map[string]interface{}{
			"code": coupon.Code,
		})
		return err
	}
	return nil
}

func (r *couponRepository) FindByID(id uint) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.db.First(&coupon, id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindByCode matches coupon codes case-insensitively.
func (r *couponRepository) FindByCode(code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.Where("LOWER(code) = LOWER(?)", code).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) FindAll(activeOnly bool) ([]model.Coupon, error) {
	var coupons []model.Coupon
	query := r.db.Order("created_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&coupons).Error; err != nil {
		logger.Error("Failed to list coupons from database", err, nil)
		return nil, err
	}
	return coupons, nil
}

func (r *couponRepository) Update(coupon *model.Coupon) error {
	if err := r.db.Save(coupon).Error; err != nil {
		logger.Error("Failed to update coupon in database", err, map[string]interface{}{
			"coupon_id": coupon.ID,
		})
		return err
	}
	return nil
}

func (r *couponRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Coupon{}, id).Error; err != nil {
		logger.Error("Failed to delete coupon from database", err, map[string]interface{}{
			"coupon_id": id,
		})
		return err
	}
	return nil
}

func (r *couponRepository) FindCartCoupon(cartID uint) (*model.CartCoupon, error) {
	var cartCoupon model.CartCoupon
	err := r.db.Where("cart_id = ?", cartID).
		Preload("Coupon").
		First(&cartCoupon).Error
	if err != nil {
		return nil, err
	}
	return &cartCoupon, nil
}

func (r *couponRepository) DeleteCartCoupon(cartID uint) error {
	err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartCoupon{}).Error
	if err != nil {
		logger.Error("Failed to delete cart coupon from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *couponRepository) FindUsage(couponID, userID uint) (*model.CouponUsage, error) {
	var usage model.CouponUsage
	err := r.db.Where("coupon_id = ? AND user_id = ?", couponID, userID).
		First(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *couponRepository) FindUsagesByCoupon(couponID uint) ([]model.CouponUsage, error) {
	var usages []model.CouponUsage
	err := r.db.Where("coupon_id = ?", couponID).
		Order("used_at ASC").
		Find(&usages).Error
	if err != nil {
		logger.Error("Failed to list coupon usages from database", err, map[string]interface{}{
			"coupon_id": couponID,
		})
		return nil, err
	}
	return usages, nil
}

func (r *couponRepository) FindAllUsages() ([]model.CouponUsage, error) {
	var usages []model.CouponUsage
	err := r.db.Preload("Coupon").Preload("User").
		Order("used_at ASC").
		Find(&usages).Error
	if err != nil {
		logger.Error("Failed to list all coupon usages from database", err, nil)
		return nil, err
	}
	return usages, nil
}
