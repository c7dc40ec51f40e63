package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type orderCommittedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderCommittedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderCommittedHandler{writer: writer, logg: logg}
}

func (h *orderCommittedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderCommittedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_committed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":   envelope.EventType,
		"order_id":     event.OrderID,
		"order_number": event.OrderNumber,
		"total_minor":  event.TotalMinor,
	})

	row, err := buildOrderCommittedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order row", err)
		return err
	}

	if err := h.writer.InsertOrderEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order row", err)
		return err
	}

	h.logg.Info(logCtx, "order_committed handler inserted order row")
	return nil
}

func buildOrderCommittedRow(envelope types.Envelope, event *payloads.OrderCommittedEvent) (types.OrderEventRow, error) {
	encoded, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.OrderEventRow{}, err
	}

	var items int64
	oversold := event.NeedsReconciliation
	for _, line := range event.Lines {
		items += int64(line.Quantity)
		if line.Oversold {
			oversold = true
		}
	}

	var promotion *string
	if event.PromotionCode != nil && !event.PromotionRevoked {
		promotion = stringPtr(*event.PromotionCode)
	}

	occurred := event.CommittedAt
	if occurred.IsZero() {
		occurred = envelope.OccurredAt
	}

	return types.OrderEventRow{
		EventID:       envelope.EventID,
		EventType:     envelope.EventType.String(),
		OrderID:       uuidPtr(event.OrderID),
		OrderNumber:   stringPtr(event.OrderNumber),
		CheckoutID:    uuidPtr(event.CheckoutID),
		AccountID:     event.AccountID.String(),
		Currency:      stringPtr(event.Currency.String()),
		SubtotalMinor: int64Ptr(event.SubtotalMinor),
		TotalMinor:    int64Ptr(event.TotalMinor),
		DiscountMinor: int64Ptr(event.DiscountMinor),
		ShippingMinor: int64Ptr(event.ShippingMinor),
		PromotionCode: promotion,
		ItemCount:     int64Ptr(items),
		Oversold:      oversold,
		OccurredAt:    occurred.UTC(),
		Payload:       encoded,
	}, nil
}
