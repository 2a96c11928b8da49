package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is a shopping session. Guest carts carry only a session key;
// a user reference is attached when the session is claimed at login.
// At most one active cart per user (partial unique index, see db.Migrate).
type Cart struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	SessionKey       string         `gorm:"uniqueIndex;not null" json:"session_key"`
	UserID           *uint          `gorm:"index" json:"user_id,omitempty"`
	BranchID         *uint          `gorm:"index" json:"branch_id,omitempty"`
	IsActive         bool           `gorm:"not null;default:true" json:"is_active"`
	ConvertedOrderID *uint          `gorm:"index" json:"converted_order_id,omitempty"`
	ExpiresAt        time.Time      `json:"expires_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	User   *User      `gorm:"foreignKey:UserID" json:"-"`
	Branch *Branch    `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Items  []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Cart) TableName() string {
	return "carts"
}

// IsExpired reports whether the cart is past its expiry timestamp.
// Expiry is advisory; the sweeper deactivates such carts opportunistically.
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

type CartItem struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	CartID         uint            `gorm:"not null;index:idx_cart_items_cart_product,unique" json:"cart_id"`
	ProductID      uint            `gorm:"not null;index:idx_cart_items_cart_product,unique" json:"product_id"`
	Quantity       int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"unit_price"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"discount_amount"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"subtotal"`
	Total          decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Cart    Cart    `gorm:"foreignKey:CartID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// BeforeSave recomputes the derived amounts so they can never drift
// from their inputs, no matter which code path saves the row.
func (ci *CartItem) BeforeSave(tx *gorm.DB) error {
	ci.Subtotal = ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
	ci.Total = ci.Subtotal.Add(ci.TaxAmount).Sub(ci.DiscountAmount)
	return nil
}
