package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Article struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
	Code        *string         `gorm:"uniqueIndex;size:50" json:"code"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	VATRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:21" json:"vat_rate"`
	Category    string          `gorm:"size:100" json:"category"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
}

// TableName overrides the table name
func (Article) TableName() string {
	return "articles"
}
