package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ActorRef identifies who produced the event. System jobs leave AccountID nil.
type ActorRef struct {
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Role      string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events
// and published verbatim.
type PayloadEnvelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   uuid.UUID                 `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}

// SystemActor marks events produced by background jobs.
func SystemActor(role string) *ActorRef {
	return &ActorRef{Role: role}
}

// AccountActor marks events produced on behalf of an account.
func AccountActor(accountID uuid.UUID, role string) *ActorRef {
	id := accountID
	return &ActorRef{AccountID: &id, Role: role}
}
