package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type reconciliationFlaggedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newReconciliationFlaggedHandler(writer Writer, logg *logger.Logger) Handler {
	return &reconciliationFlaggedHandler{writer: writer, logg: logg}
}

func (h *reconciliationFlaggedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.ReconciliationFlaggedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for reconciliation_flagged")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":   envelope.EventType,
		"exception_id": event.ExceptionID,
		"kind":         event.Kind,
	})

	encoded, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload", err)
		return err
	}

	var orderID *string
	if event.OrderID != nil {
		orderID = uuidPtr(*event.OrderID)
	}
	occurred := event.FlaggedAt
	if occurred.IsZero() {
		occurred = envelope.OccurredAt
	}

	row := types.OrderEventRow{
		EventID:       envelope.EventID,
		EventType:     envelope.EventType.String(),
		OrderID:       orderID,
		CheckoutID:    uuidPtr(event.CheckoutID),
		AccountID:     event.AccountID.String(),
		ExceptionKind: stringPtr(event.Kind.String()),
		OccurredAt:    occurred.UTC(),
		Payload:       encoded,
	}
	if err := h.writer.InsertOrderEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert reconciliation row", err)
		return err
	}

	h.logg.Warn(logCtx, "reconciliation exception recorded in analytics")
	return nil
}
