package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderLineItem snapshots what was sold, independent of later catalog edits.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantKey     string    `gorm:"column:variant_key;not null"`
	Name           string    `gorm:"column:name;not null"`
	Thumbnail      *string   `gorm:"column:thumbnail"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceMinor int64     `gorm:"column:unit_price_minor;not null"`
	LineTotalMinor int64     `gorm:"column:line_total_minor;not null"`
	Oversold       bool      `gorm:"column:oversold;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderLineItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
