package models

// All lists every persisted model, in dependency order, for schema bootstrapping in tests.
func All() []any {
	return []any{
		&Product{},
		&ProductVariant{},
		&Promotion{},
		&PromotionRedemption{},
		&CheckoutSession{},
		&OrderCounter{},
		&Order{},
		&OrderLineItem{},
		&ReconciliationException{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
