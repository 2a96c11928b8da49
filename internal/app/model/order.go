package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	UserID         *uint           `gorm:"index" json:"user_id,omitempty"`
	BranchID       *uint           `gorm:"index" json:"branch_id,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"total_amount"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	Status         OrderStatus     `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`

	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"unit_price"`
	Total     decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"total"`
	CreatedAt time.Time       `json:"created_at"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
