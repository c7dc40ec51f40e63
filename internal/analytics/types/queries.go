package types

import "time"

// SalesQueryRequest bounds a sales summary query.
type SalesQueryRequest struct {
	Start time.Time
	End   time.Time
}

// TimeSeriesPoint is a single day/value pair.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue is a top-N entry such as a promotion code.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// SalesSummary is the admin sales dashboard payload. Amounts are minor units.
type SalesSummary struct {
	Orders         []TimeSeriesPoint `json:"orders"`
	Revenue        []TimeSeriesPoint `json:"revenue_minor"`
	Discounts      []TimeSeriesPoint `json:"discounts_minor"`
	TopPromotions  []LabelValue      `json:"top_promotions"`
	AOVMinor       float64           `json:"aov_minor"`
	OversoldOrders int64             `json:"oversold_orders"`
	FlaggedByKind  []LabelValue      `json:"flagged_by_kind"`
}
