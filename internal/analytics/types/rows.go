package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. One row is written
// per order or reconciliation event; columns that do not apply stay NULL.
type OrderEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OrderID       *string            `bigquery:"order_id"`
	OrderNumber   *string            `bigquery:"order_number"`
	CheckoutID    *string            `bigquery:"checkout_id"`
	AccountID     string             `bigquery:"account_id"`
	Currency      *string            `bigquery:"currency"`
	SubtotalMinor *int64             `bigquery:"subtotal_minor"`
	TotalMinor    *int64             `bigquery:"total_minor"`
	DiscountMinor *int64             `bigquery:"discount_minor"`
	ShippingMinor *int64             `bigquery:"shipping_minor"`
	PromotionCode *string            `bigquery:"promotion_code"`
	ItemCount     *int64             `bigquery:"item_count"`
	Oversold      bool               `bigquery:"oversold"`
	OrderStatus   *string            `bigquery:"order_status"`
	ExceptionKind *string            `bigquery:"exception_kind"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
