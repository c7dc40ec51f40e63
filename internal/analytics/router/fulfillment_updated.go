package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type fulfillmentUpdatedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newFulfillmentUpdatedHandler(writer Writer, logg *logger.Logger) Handler {
	return &fulfillmentUpdatedHandler{writer: writer, logg: logg}
}

func (h *fulfillmentUpdatedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderFulfillmentUpdatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_fulfillment_updated")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"status":     event.Status,
	})

	encoded, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload", err)
		return err
	}

	occurred := event.UpdatedAt
	if occurred.IsZero() {
		occurred = envelope.OccurredAt
	}

	row := types.OrderEventRow{
		EventID:     envelope.EventID,
		EventType:   envelope.EventType.String(),
		OrderID:     uuidPtr(event.OrderID),
		OrderNumber: stringPtr(event.OrderNumber),
		AccountID:   event.AccountID.String(),
		OrderStatus: stringPtr(event.Status.String()),
		OccurredAt:  occurred.UTC(),
		Payload:     encoded,
	}
	if err := h.writer.InsertOrderEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}
	return nil
}
