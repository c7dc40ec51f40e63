package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// ErrUnsupportedEventType covers event types and payload versions this
// consumer has no decoder for. Such events are acknowledged and skipped.
var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router dispatches analytics envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.OutboxEventType]Handler
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventOrderCommitted:          newOrderCommittedHandler(writer, logg),
		enums.EventOrderFulfillmentUpdated: newFulfillmentUpdatedHandler(writer, logg),
		enums.EventReconciliationFlagged:   newReconciliationFlaggedHandler(writer, logg),
	}

	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{
		handlers: handlers,
		decoders: registry.NewOrderEventDecoders(),
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok || !r.decoders.Knows(envelope.EventType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload, err := r.decoders.Decode(envelope.EventType, envelope.Version, envelope.Payload)
	if errors.Is(err, registry.ErrDecoderNotRegistered) {
		return fmt.Errorf("%w: %s@v%d", ErrUnsupportedEventType, envelope.EventType, envelope.Version)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	return handler.Handle(ctx, envelope, payload)
}
