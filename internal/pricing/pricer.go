package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CatalogReader is the read side of the catalog consumed by the Pricer.
type CatalogReader interface {
	GetVariant(ctx context.Context, productID uuid.UUID, variantKey string) (*catalog.Variant, error)
}

// PromotionLedger resolves codes and the per-account usage set.
type PromotionLedger interface {
	GetByCode(ctx context.Context, code string) (*models.Promotion, error)
	HasRedeemed(ctx context.Context, promotionID, accountID uuid.UUID) (bool, error)
}

// CartLine is a client-supplied cart entry. ClientUnitPriceMinor is accepted
// for compatibility and never read.
type CartLine struct {
	ProductID            uuid.UUID `json:"product_id" validate:"required"`
	VariantKey           string    `json:"variant" validate:"required"`
	Quantity             int       `json:"quantity" validate:"required,gte=1"`
	ClientUnitPriceMinor *int64    `json:"unit_price_minor,omitempty"`
}

// PromotionResult tells the caller whether the requested code applied.
type PromotionResult struct {
	Code          string `json:"code"`
	Applied       bool   `json:"applied"`
	Message       string `json:"message,omitempty"`
	DiscountMinor int64  `json:"discount_minor"`
}

// Quote is an authoritative, unpersisted priced cart.
type Quote struct {
	AccountID uuid.UUID                `json:"-"`
	Currency  enums.Currency           `json:"currency"`
	Lines     []types.QuotedLine       `json:"lines"`
	Pricing   types.PricingBreakdown   `json:"pricing"`
	Promotion *PromotionResult         `json:"promotion,omitempty"`
	Applied   *types.PromotionSnapshot `json:"-"`
	PricedAt  time.Time                `json:"priced_at"`
}

// Pricer turns carts into quotes using only catalog and promotion state.
type Pricer interface {
	Quote(ctx context.Context, accountID uuid.UUID, lines []CartLine, promotionCode string) (*Quote, error)
}

type pricer struct {
	catalog    CatalogReader
	promotions PromotionLedger
	rules      Rules
	now        func() time.Time
}

// NewPricer builds a Pricer.
func NewPricer(catalogReader CatalogReader, ledger PromotionLedger, rules Rules) (Pricer, error) {
	if catalogReader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("promotion ledger required")
	}
	if rules.MaxLines <= 0 || rules.MaxQuantityPerLine <= 0 {
		return nil, fmt.Errorf("pricing line limits must be positive")
	}
	return &pricer{catalog: catalogReader, promotions: ledger, rules: rules, now: time.Now}, nil
}

func (p *pricer) Quote(ctx context.Context, accountID uuid.UUID, lines []CartLine, promotionCode string) (*Quote, error) {
	merged, err := p.normalizeLines(lines)
	if err != nil {
		return nil, err
	}

	quoted := make([]types.QuotedLine, 0, len(merged))
	for _, line := range merged {
		variant, err := p.catalog.GetVariant(ctx, line.ProductID, line.VariantKey)
		if errors.Is(err, catalog.ErrVariantNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is unavailable").
				WithDetails(map[string]any{"product_id": line.ProductID, "variant": line.VariantKey})
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if !variant.Active {
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is unavailable").
				WithDetails(map[string]any{"product_id": line.ProductID, "variant": line.VariantKey})
		}
		if line.Quantity > variant.Stock {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"variant":    line.VariantKey,
					"available":  variant.Stock,
				})
		}
		quoted = append(quoted, types.QuotedLine{
			ProductID:      variant.ProductID,
			VariantKey:     variant.VariantKey,
			Name:           variant.ProductName,
			Thumbnail:      variant.Thumbnail,
			Quantity:       line.Quantity,
			UnitPriceMinor: variant.UnitPriceMinor,
			ListPriceMinor: variant.ListPriceMinor,
			LineTotalMinor: variant.UnitPriceMinor * int64(line.Quantity),
		})
	}

	now := p.now().UTC()
	subtotal := Subtotal(quoted)
	quote := &Quote{
		AccountID: accountID,
		Currency:  p.rules.Currency,
		Lines:     quoted,
		PricedAt:  now,
	}

	var discount int64
	if code := promotions.NormalizeCode(promotionCode); code != "" {
		result, snapshot, err := p.resolvePromotion(ctx, accountID, code, subtotal, now)
		if err != nil {
			return nil, err
		}
		quote.Promotion = result
		quote.Applied = snapshot
		discount = result.DiscountMinor
	}
	quote.Pricing = ComputeTotals(subtotal, discount, p.rules)
	return quote, nil
}

func (p *pricer) resolvePromotion(ctx context.Context, accountID uuid.UUID, code string, subtotal int64, now time.Time) (*PromotionResult, *types.PromotionSnapshot, error) {
	result := &PromotionResult{Code: code}
	promo, err := p.promotions.GetByCode(ctx, code)
	if errors.Is(err, promotions.ErrNotFound) {
		result.Message = promotions.ReasonNotFound
		return result, nil, nil
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}
	used, err := p.promotions.HasRedeemed(ctx, promo.ID, accountID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check promotion redemption")
	}
	eligibility := promotions.CheckEligibility(promo, used, subtotal, now)
	if !eligibility.Valid {
		result.Message = eligibility.Reason
		return result, nil, nil
	}
	result.Applied = true
	result.DiscountMinor = promotions.Discount(promo, subtotal)
	return result, Snapshot(promo), nil
}

// Snapshot freezes the promotion attributes that priced an order.
func Snapshot(promo *models.Promotion) *types.PromotionSnapshot {
	if promo == nil {
		return nil
	}
	return &types.PromotionSnapshot{
		PromotionID:   promo.ID,
		Code:          promo.Code,
		DiscountType:  promo.DiscountType,
		DiscountValue: promo.DiscountValue,
	}
}

type lineKey struct {
	productID uuid.UUID
	variant   string
}

// normalizeLines validates the cart and merges duplicate product/variant pairs,
// keeping first-seen order.
func (p *pricer) normalizeLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one line")
	}
	if len(lines) > p.rules.MaxLines {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart cannot exceed %d lines", p.rules.MaxLines))
	}

	merged := make([]CartLine, 0, len(lines))
	index := make(map[lineKey]int, len(lines))
	for i, line := range lines {
		variant := strings.TrimSpace(line.VariantKey)
		if line.ProductID == uuid.Nil || variant == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id and variant are required").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity < 1 || line.Quantity > p.rules.MaxQuantityPerLine {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity must be between 1 and %d", p.rules.MaxQuantityPerLine)).
				WithDetails(map[string]any{"line": i})
		}
		key := lineKey{productID: line.ProductID, variant: variant}
		if at, ok := index[key]; ok {
			merged[at].Quantity += line.Quantity
			if merged[at].Quantity > p.rules.MaxQuantityPerLine {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("quantity must be between 1 and %d", p.rules.MaxQuantityPerLine)).
					WithDetails(map[string]any{"line": i})
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, CartLine{ProductID: line.ProductID, VariantKey: variant, Quantity: line.Quantity})
	}
	return merged, nil
}
