package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponKind is a closed set; the discount calculator switches
// exhaustively over it and rejects anything else.
type CouponKind string

const (
	CouponPercentage   CouponKind = "percentage"
	CouponFixed        CouponKind = "fixed"
	CouponFreeShipping CouponKind = "free_shipping"
)

type Coupon struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	Code             string          `gorm:"uniqueIndex;not null" json:"code"`
	Kind             CouponKind      `gorm:"type:varchar(20);not null" json:"kind"`
	Value            decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"value"`
	MinOrderAmount   decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"min_order_amount"`
	StartDate        time.Time       `gorm:"index" json:"start_date"`
	EndDate          *time.Time      `gorm:"index" json:"end_date,omitempty"`
	IsActive         bool            `gorm:"not null;default:true" json:"is_active"`
	MaxUses          int             `gorm:"not null;default:0" json:"max_uses"`
	CurrentUses      int             `gorm:"not null;default:0" json:"current_uses"`
	SingleUsePerUser bool            `gorm:"not null;default:false" json:"single_use_per_user"`
	Description      string          `gorm:"type:text" json:"description"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// CartCoupon binds the single applied coupon to a cart. Exclusivity is
// by overwrite: re-applying replaces the existing row for the cart.
type CartCoupon struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	CartID         uint            `gorm:"uniqueIndex;not null" json:"cart_id"`
	CouponID       uint            `gorm:"not null;index" json:"coupon_id"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"discount_amount"`
	AppliedAt      time.Time       `json:"applied_at"`

	Cart   Cart   `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"-"`
	Coupon Coupon `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE" json:"coupon,omitempty"`
}

func (CartCoupon) TableName() string {
	return "cart_coupons"
}

// CouponUsage is the append-only redemption audit. Rows survive coupon
// removal from a cart; only deleting the coupon itself cascades here.
type CouponUsage struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	CouponID       uint            `gorm:"not null;index:idx_coupon_usages_coupon_user,unique" json:"coupon_id"`
	UserID         uint            `gorm:"not null;index:idx_coupon_usages_coupon_user,unique" json:"user_id"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`

	Coupon Coupon `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE" json:"-"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`
}

func (CouponUsage) TableName() string {
	return "coupon_usages"
}
