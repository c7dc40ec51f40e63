package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog entry a shopper picks variants from.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	Slug      string           `gorm:"column:slug;not null;uniqueIndex"`
	Thumbnail *string          `gorm:"column:thumbnail"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariant is a purchasable pack size. Stock is only decremented by the
// commit step, always conditioned on stock >= quantity.
type ProductVariant struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_variants_key"`
	VariantKey     string    `gorm:"column:variant_key;not null;uniqueIndex:idx_product_variants_key"`
	PriceMinor     int64     `gorm:"column:price_minor;not null"`
	ListPriceMinor int64     `gorm:"column:list_price_minor;not null"`
	Stock          int       `gorm:"column:stock;not null;check:stock >= 0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
