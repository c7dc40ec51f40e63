package pricing

import (
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Rules are the store-wide pricing parameters, all amounts in minor units.
type Rules struct {
	Currency                   enums.Currency
	FreeShippingThresholdMinor int64
	FlatShippingFeeMinor       int64
	TaxMinor                   int64
	MaxLines                   int
	MaxQuantityPerLine         int
}

// RulesFromConfig maps checkout configuration onto pricing rules.
func RulesFromConfig(cfg config.CheckoutConfig) (Rules, error) {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		return Rules{}, err
	}
	return Rules{
		Currency:                   currency,
		FreeShippingThresholdMinor: cfg.FreeShippingThresholdMinor,
		FlatShippingFeeMinor:       cfg.FlatShippingFeeMinor,
		TaxMinor:                   cfg.TaxMinor,
		MaxLines:                   cfg.MaxLines,
		MaxQuantityPerLine:         cfg.MaxQuantityPerLine,
	}, nil
}

// DefaultRules mirrors the configuration defaults.
func DefaultRules() Rules {
	return Rules{
		Currency:                   enums.CurrencyINR,
		FreeShippingThresholdMinor: 49900,
		FlatShippingFeeMinor:       4900,
		MaxLines:                   50,
		MaxQuantityPerLine:         100,
	}
}

// Subtotal sums the line totals.
func Subtotal(lines []types.QuotedLine) int64 {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.LineTotalMinor
	}
	return subtotal
}

// ComputeTotals derives shipping, tax and grand total. Shipping is waived once
// the discounted subtotal reaches the free shipping threshold.
func ComputeTotals(subtotal, discount int64, rules Rules) types.PricingBreakdown {
	discount = money.Min(money.NonNegative(discount), money.NonNegative(subtotal))
	shipping := rules.FlatShippingFeeMinor
	if subtotal-discount >= rules.FreeShippingThresholdMinor {
		shipping = 0
	}
	return types.PricingBreakdown{
		SubtotalMinor: subtotal,
		DiscountMinor: discount,
		ShippingMinor: shipping,
		TaxMinor:      rules.TaxMinor,
		TotalMinor:    money.NonNegative(subtotal - discount + shipping + rules.TaxMinor),
	}
}
