package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	SKU           string           `gorm:"uniqueIndex;not null" json:"sku"`
	Name          string           `gorm:"not null" json:"name"`
	Description   string           `gorm:"type:text" json:"description"`
	SellingPrice  decimal.Decimal  `gorm:"type:decimal(16,2);not null" json:"selling_price"`
	DiscountPrice *decimal.Decimal `gorm:"type:decimal(16,2)" json:"discount_price,omitempty"`
	TaxAmount     decimal.Decimal  `gorm:"type:decimal(16,2);not null;default:0" json:"tax_amount"`
	StockQuantity int              `gorm:"not null;default:0" json:"stock_quantity"`
	BranchID      *uint            `gorm:"index" json:"branch_id,omitempty"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`

	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// EffectivePrice is the price a cart item snapshots at add time:
// the discount price when one is set, the selling price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.SellingPrice
}
