package promotions

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

const (
	ReasonInactive      = "Coupon is inactive"
	ReasonNotYetValid   = "Coupon not yet valid"
	ReasonExpired       = "Coupon has expired"
	ReasonUsageLimit    = "Coupon usage limit reached"
	ReasonAlreadyUsed   = "Coupon already used by this account"
	ReasonNotFound      = "Coupon not found"
	minimumReasonFormat = "Minimum order value ₹%s required"
)

// Eligibility is the outcome of checking a promotion against an order.
type Eligibility struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func ineligible(reason string) Eligibility {
	return Eligibility{Reason: reason}
}

// NormalizeCode uppercases and trims a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckEligibility applies the rules in order and stops at the first failure.
// orderValue is in minor units.
func CheckEligibility(promo *models.Promotion, alreadyUsed bool, orderValue int64, now time.Time) Eligibility {
	if promo == nil {
		return ineligible(ReasonNotFound)
	}
	if !promo.IsActive {
		return ineligible(ReasonInactive)
	}
	if now.Before(promo.ValidFrom) {
		return ineligible(ReasonNotYetValid)
	}
	if now.After(promo.ValidUntil) {
		return ineligible(ReasonExpired)
	}
	if promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit {
		return ineligible(ReasonUsageLimit)
	}
	if alreadyUsed {
		return ineligible(ReasonAlreadyUsed)
	}
	if orderValue < promo.MinOrderValueMinor {
		return ineligible(fmt.Sprintf(minimumReasonFormat, money.FormatWhole(promo.MinOrderValueMinor)))
	}
	return Eligibility{Valid: true}
}

// Discount computes the reduction a promotion grants on subtotal, in minor units.
// It never exceeds the subtotal.
func Discount(promo *models.Promotion, subtotal int64) int64 {
	if promo == nil || subtotal <= 0 {
		return 0
	}
	var discount int64
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		discount = money.Percent(subtotal, promo.DiscountValue)
		if promo.MaxDiscountMinor != nil {
			discount = money.Min(discount, *promo.MaxDiscountMinor)
		}
	case enums.DiscountTypeFlat:
		discount = promo.DiscountValue.Round(0).IntPart()
	default:
		return 0
	}
	return money.Min(money.NonNegative(discount), subtotal)
}
