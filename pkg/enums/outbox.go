package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder                   OutboxAggregateType = "order"
	AggregateCheckoutSession         OutboxAggregateType = "checkout_session"
	AggregateReconciliationException OutboxAggregateType = "reconciliation_exception"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCheckoutSession,
	AggregateReconciliationException,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event carried through the outbox.
type OutboxEventType string

const (
	EventOrderCommitted          OutboxEventType = "order_committed"
	EventOrderFulfillmentUpdated OutboxEventType = "order_fulfillment_updated"
	EventReconciliationFlagged   OutboxEventType = "reconciliation_flagged"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCommitted,
	EventOrderFulfillmentUpdated,
	EventReconciliationFlagged,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why an outbox row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value is a known dead-letter reason.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
