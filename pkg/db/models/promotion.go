package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Promotion is a promotional code. For percentage promotions DiscountValue is
// the percent off; for flat promotions it is the amount off in minor units.
type Promotion struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code               string             `gorm:"column:code;not null;uniqueIndex"`
	Description        *string            `gorm:"column:description"`
	DiscountType       enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue      decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountMinor   *int64             `gorm:"column:max_discount_minor"`
	MinOrderValueMinor int64              `gorm:"column:min_order_value_minor;not null;default:0"`
	UsageLimit         *int               `gorm:"column:usage_limit"`
	UsedCount          int                `gorm:"column:used_count;not null;default:0"`
	ValidFrom          time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil         time.Time          `gorm:"column:valid_until;not null"`
	IsActive           bool               `gorm:"column:is_active;not null"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PromotionRedemption records that an account used a promotion. The unique
// (promotion_id, account_id) pair is the per-account usage set.
type PromotionRedemption struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;not null;uniqueIndex:idx_promotion_redemptions_account"`
	AccountID   uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_promotion_redemptions_account"`
	CheckoutID  uuid.UUID `gorm:"column:checkout_id;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *PromotionRedemption) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
