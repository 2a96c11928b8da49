package model

import (
	"time"

	"gorm.io/gorm"
)

// Branch is a physical sales location. Carts and products may reference one.
type Branch struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	City      string         `json:"city"`
	Address   string         `json:"address"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Branch) TableName() string {
	return "branches"
}
