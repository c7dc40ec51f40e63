package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ReconciliationException is an append-only record of money that moved
// without a clean order outcome. Only the resolution fields change later.
type ReconciliationException struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Kind                 enums.ExceptionKind `gorm:"column:kind;type:text;not null;index"`
	CheckoutID           uuid.UUID           `gorm:"column:checkout_id;type:uuid;not null;index"`
	OrderID              *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	AccountID            uuid.UUID           `gorm:"column:account_id;type:uuid;not null"`
	GatewayIntentID      *string             `gorm:"column:gateway_intent_id"`
	GatewayTransactionID *string             `gorm:"column:gateway_transaction_id"`
	Details              types.JSONMap       `gorm:"column:details;type:jsonb;serializer:json"`
	ResolvedAt           *time.Time          `gorm:"column:resolved_at"`
	ResolutionNote       *string             `gorm:"column:resolution_note"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime;index"`
}

func (e *ReconciliationException) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
