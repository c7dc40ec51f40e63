package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Envelope is an outbox event as delivered on the orders subscription.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Version       int                       `json:"version"`
	Payload       json.RawMessage           `json:"payload"`
}
