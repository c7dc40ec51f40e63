package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// QuotedLine is a cart line priced from the catalog. Prices are minor units.
type QuotedLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant"`
	Name           string    `json:"name"`
	Thumbnail      *string   `json:"thumbnail,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	ListPriceMinor int64     `json:"list_price_minor"`
	LineTotalMinor int64     `json:"line_total_minor"`
}

// PricingBreakdown holds the totals of a quote or order in minor units.
type PricingBreakdown struct {
	SubtotalMinor int64 `json:"subtotal_minor"`
	DiscountMinor int64 `json:"discount_minor"`
	ShippingMinor int64 `json:"shipping_minor"`
	TaxMinor      int64 `json:"tax_minor"`
	TotalMinor    int64 `json:"total_minor"`
}

// PromotionSnapshot freezes the applied promotion; it never references the live row.
type PromotionSnapshot struct {
	PromotionID   uuid.UUID          `json:"promotion_id"`
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
}

// JSONMap stores an arbitrary JSON object.
type JSONMap map[string]any
