package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/reconciliation"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxOrderNumberAttempts = 3

var errSessionMoved = errors.New("checkout session left the committable states")

var committableStates = []enums.CheckoutState{
	enums.CheckoutStateVerified,
	enums.CheckoutStateCommitFailed,
}

// commitOutcome is what one commit transaction produced.
type commitOutcome struct {
	order            *models.Order
	promotionRevoked bool
	oversold         int
}

// commit turns a verified session into an order. It is idempotent on the
// checkout id: a session that already has an order returns it.
func (s *service) commit(ctx context.Context, session *models.CheckoutSession) (*ConfirmResult, error) {
	if existing, err := s.orders.FindByCheckoutID(ctx, session.ID); err == nil {
		s.markCommitted(ctx, session.ID, existing.ID)
		return &ConfirmResult{Order: orders.ToDetail(existing)}, nil
	} else if !errors.Is(err, orders.ErrNotFound) {
		return nil, s.failCommit(ctx, session, err)
	}

	var (
		outcome *commitOutcome
		err     error
	)
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		outcome, err = s.commitOnce(ctx, session)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "checkout_id") || errors.Is(err, errSessionMoved) {
			// Another request committed this checkout first.
			existing, findErr := s.orders.FindByCheckoutID(ctx, session.ID)
			if findErr == nil {
				s.markCommitted(ctx, session.ID, existing.ID)
				return &ConfirmResult{Order: orders.ToDetail(existing)}, nil
			}
			break
		}
		if db.IsUniqueViolation(err, "order_number") || db.IsUniqueViolation(err, "sequence") {
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "checkout.commit.order_number_collision")
			continue
		}
		break
	}
	if err != nil {
		return nil, s.failCommit(ctx, session, err)
	}

	s.metrics.IncCommit("committed")
	s.metrics.AddOversell(outcome.oversold)
	if outcome.promotionRevoked {
		s.metrics.IncPromotionRevoked()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":          outcome.order.ID.String(),
		"order_number":      outcome.order.OrderNumber,
		"promotion_revoked": outcome.promotionRevoked,
		"oversold_lines":    outcome.oversold,
	}), "checkout.committed")
	return &ConfirmResult{Order: orders.ToDetail(outcome.order), Created: true}, nil
}

func (s *service) commitOnce(ctx context.Context, session *models.CheckoutSession) (*commitOutcome, error) {
	outcome := &commitOutcome{}
	sequence, err := s.orders.NextSequence(ctx)
	if err != nil {
		return nil, err
	}
	// The clock is read after allocation so no lock wait separates the two.
	now := s.now().UTC()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		discount, snapshot, revoked, err := s.applyPromotion(ctx, tx, session, now)
		if err != nil {
			return err
		}
		outcome.promotionRevoked = revoked
		totals := session.Pricing
		if revoked {
			totals = pricing.ComputeTotals(pricing.Subtotal(session.Lines), discount, s.rules)
		}

		order := buildOrder(session, totals, snapshot, sequence, orders.FormatOrderNumber(s.prefix, now, sequence), now)
		shortfall := order.TotalMinor - order.AmountPaidMinor
		if shortfall > 0 {
			order.NeedsReconciliation = true
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		var flagged []*models.ReconciliationException
		if shortfall > 0 {
			exception, err := s.reconciliation.Record(ctx, tx, reconciliation.RecordInput{
				Kind:                 enums.ExceptionUnderpaid,
				CheckoutID:           session.ID,
				OrderID:              &order.ID,
				AccountID:            session.AccountID,
				GatewayIntentID:      order.GatewayIntentID,
				GatewayTransactionID: order.GatewayTransactionID,
				Details: types.JSONMap{
					"order_number":      order.OrderNumber,
					"promotion_code":    deref(session.PromotionCode),
					"total_minor":       order.TotalMinor,
					"amount_paid_minor": order.AmountPaidMinor,
					"shortfall_minor":   shortfall,
				},
			})
			if err != nil {
				return err
			}
			flagged = append(flagged, exception)
		}

		oversold, err := s.decrementStock(ctx, tx, order)
		if err != nil {
			return err
		}
		outcome.oversold = len(oversold)

		if len(oversold) > 0 {
			if err := ordersRepo.MarkOversold(ctx, order.ID, oversold); err != nil {
				return err
			}
			order.NeedsReconciliation = true
			markLines(order, oversold)
			exception, err := s.reconciliation.Record(ctx, tx, reconciliation.RecordInput{
				Kind:                 enums.ExceptionOversell,
				CheckoutID:           session.ID,
				OrderID:              &order.ID,
				AccountID:            session.AccountID,
				GatewayIntentID:      order.GatewayIntentID,
				GatewayTransactionID: order.GatewayTransactionID,
				Details:              oversellDetails(order),
			})
			if err != nil {
				return err
			}
			flagged = append(flagged, exception)
		}

		ok, err := s.sessions.WithTx(tx).Transition(ctx, session.ID, committableStates, enums.CheckoutStateCommitted, map[string]any{
			"order_id":       order.ID,
			"committed_at":   now,
			"failure_reason": nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errSessionMoved
		}

		if err := s.emitCommitted(ctx, tx, session, order, revoked); err != nil {
			return err
		}
		for _, exception := range flagged {
			if err := s.emitFlagged(ctx, tx, exception); err != nil {
				return err
			}
		}
		outcome.order = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// applyPromotion re-checks the quoted promotion against current state and
// consumes one use. Any outcome other than a successful increment drops the
// discount and the snapshot.
func (s *service) applyPromotion(ctx context.Context, tx *gorm.DB, session *models.CheckoutSession, now time.Time) (int64, *types.PromotionSnapshot, bool, error) {
	if session.PromotionCode == nil || *session.PromotionCode == "" {
		return 0, nil, false, nil
	}
	repo := s.promotions.WithTx(tx)
	code := *session.PromotionCode
	subtotal := pricing.Subtotal(session.Lines)

	promo, err := repo.GetByCode(ctx, code)
	if errors.Is(err, promotions.ErrNotFound) {
		s.logg.Warn(s.logg.WithField(ctx, "promotion_code", code), "checkout.commit.promotion_missing")
		return 0, nil, true, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("load promotion: %w", err)
	}
	used, err := repo.HasRedeemed(ctx, promo.ID, session.AccountID)
	if err != nil {
		return 0, nil, false, fmt.Errorf("check promotion redemption: %w", err)
	}
	if eligibility := promotions.CheckEligibility(promo, used, subtotal, now); !eligibility.Valid {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"promotion_code": code, "reason": eligibility.Reason}), "checkout.commit.promotion_revoked")
		return 0, nil, true, nil
	}

	result, err := repo.ConditionalIncrementUsage(ctx, code, session.AccountID, session.ID)
	if err != nil {
		return 0, nil, false, fmt.Errorf("consume promotion: %w", err)
	}
	if result != promotions.UsageApplied {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"promotion_code": code, "reason": string(result)}), "checkout.commit.promotion_revoked")
		return 0, nil, true, nil
	}

	snapshot := session.Promotion
	if snapshot == nil {
		snapshot = pricing.Snapshot(promo)
	}
	return session.Pricing.DiscountMinor, snapshot, false, nil
}

// decrementStock takes stock for every line. Lines whose conditional update
// fails are returned as oversold; the order still commits.
func (s *service) decrementStock(ctx context.Context, tx *gorm.DB, order *models.Order) ([]uuid.UUID, error) {
	catalogRepo := s.catalog.WithTx(tx)
	var oversold []uuid.UUID
	for _, item := range order.Items {
		ok, err := catalogRepo.DecrementStock(ctx, item.ProductID, item.VariantKey, item.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			oversold = append(oversold, item.ID)
		}
	}
	return oversold, nil
}

// failCommit records the failure outside the rolled-back transaction. The
// exception row is written on its own so it survives an outbox outage.
func (s *service) failCommit(ctx context.Context, session *models.CheckoutSession, cause error) error {
	s.metrics.IncCommit("failed")
	s.logg.Error(ctx, "checkout.commit_failed", cause)

	if _, err := s.sessions.Transition(ctx, session.ID, committableStates, enums.CheckoutStateCommitFailed, map[string]any{
		"failure_reason": truncate(cause.Error(), 500),
	}); err != nil {
		s.logg.Error(ctx, "checkout.commit_failed.persist_state", err)
	}

	open, err := s.reconciliation.HasOpen(ctx, session.ID, enums.ExceptionCommitFailed)
	if err != nil {
		s.logg.Error(ctx, "checkout.commit_failed.check_exception", err)
	}
	if err == nil && !open {
		exception, err := s.reconciliation.Record(ctx, nil, reconciliation.RecordInput{
			Kind:                 enums.ExceptionCommitFailed,
			CheckoutID:           session.ID,
			AccountID:            session.AccountID,
			GatewayIntentID:      deref(session.GatewayIntentID),
			GatewayTransactionID: deref(session.GatewayTransactionID),
			Details: types.JSONMap{
				"amount_minor": session.AmountMinor,
				"error":        truncate(cause.Error(), 500),
			},
		})
		if err != nil {
			s.logg.Error(ctx, "checkout.commit_failed.record_exception", err)
		} else if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.emitFlagged(ctx, tx, exception)
		}); err != nil {
			s.logg.Error(ctx, "checkout.commit_failed.emit", err)
		}
	}

	return pkgerrors.Wrap(pkgerrors.CodeCommitFailed, cause, "payment received but the order could not be recorded; contact support with your checkout id").
		WithDetails(map[string]any{"checkout_id": session.ID})
}

// markCommitted repairs a session whose order exists but whose state update
// was lost.
func (s *service) markCommitted(ctx context.Context, sessionID, orderID uuid.UUID) {
	if _, err := s.sessions.Transition(ctx, sessionID, committableStates, enums.CheckoutStateCommitted, map[string]any{
		"order_id":     orderID,
		"committed_at": s.now().UTC(),
	}); err != nil {
		s.logg.Error(ctx, "checkout.mark_committed", err)
	}
}

func (s *service) emitCommitted(ctx context.Context, tx *gorm.DB, session *models.CheckoutSession, order *models.Order, revoked bool) error {
	lines := make([]payloads.OrderCommittedLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderCommittedLine{
			ProductID:      item.ProductID,
			VariantKey:     item.VariantKey,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
			LineTotalMinor: item.LineTotalMinor,
			Oversold:       item.Oversold,
		})
	}
	var code *string
	if order.Promotion != nil {
		c := order.Promotion.Code
		code = &c
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCommitted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         outbox.AccountActor(session.AccountID, enums.RoleCustomer.String()),
		OccurredAt:    order.PaidAt,
		Data: payloads.OrderCommittedEvent{
			OrderID:             order.ID,
			OrderNumber:         order.OrderNumber,
			CheckoutID:          session.ID,
			AccountID:           order.AccountID,
			Currency:            order.Currency,
			SubtotalMinor:       order.SubtotalMinor,
			DiscountMinor:       order.DiscountMinor,
			ShippingMinor:       order.ShippingMinor,
			TaxMinor:            order.TaxMinor,
			TotalMinor:          order.TotalMinor,
			PromotionCode:       code,
			PromotionRevoked:    revoked,
			NeedsReconciliation: order.NeedsReconciliation,
			IsSubscription:      order.IsSubscription,
			Lines:               lines,
			CommittedAt:         order.PaidAt,
		},
	})
}

func (s *service) emitFlagged(ctx context.Context, tx *gorm.DB, exception *models.ReconciliationException) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReconciliationFlagged,
		AggregateType: enums.AggregateReconciliationException,
		AggregateID:   exception.ID,
		Actor:         outbox.SystemActor("reconciler"),
		OccurredAt:    exception.CreatedAt,
		Data: payloads.ReconciliationFlaggedEvent{
			ExceptionID: exception.ID,
			Kind:        exception.Kind,
			CheckoutID:  exception.CheckoutID,
			OrderID:     exception.OrderID,
			AccountID:   exception.AccountID,
			FlaggedAt:   exception.CreatedAt,
		},
	})
}

func buildOrder(session *models.CheckoutSession, totals types.PricingBreakdown, promo *types.PromotionSnapshot, sequence int64, number string, now time.Time) *models.Order {
	items := make([]models.OrderLineItem, 0, len(session.Lines))
	for _, line := range session.Lines {
		items = append(items, models.OrderLineItem{
			ProductID:      line.ProductID,
			VariantKey:     line.VariantKey,
			Name:           line.Name,
			Thumbnail:      line.Thumbnail,
			Quantity:       line.Quantity,
			UnitPriceMinor: line.UnitPriceMinor,
			LineTotalMinor: line.LineTotalMinor,
		})
	}
	return &models.Order{
		CheckoutID:            session.ID,
		AccountID:             session.AccountID,
		OrderNumber:           number,
		Sequence:              sequence,
		Currency:              session.Currency,
		SubtotalMinor:         totals.SubtotalMinor,
		DiscountMinor:         totals.DiscountMinor,
		ShippingMinor:         totals.ShippingMinor,
		TaxMinor:              totals.TaxMinor,
		TotalMinor:            totals.TotalMinor,
		AmountPaidMinor:       session.AmountMinor,
		Promotion:             promo,
		ShippingAddress:       session.ShippingAddress,
		PaymentMethod:         enums.PaymentMethodRazorpay,
		PaymentStatus:         enums.PaymentStatusPaid,
		GatewayIntentID:       deref(session.GatewayIntentID),
		GatewayTransactionID:  deref(session.GatewayTransactionID),
		GatewaySignature:      deref(session.GatewaySignature),
		PaidAt:                now,
		Status:                enums.OrderStatusConfirmed,
		Notes:                 session.Notes,
		IsSubscription:        session.IsSubscription,
		SubscriptionFrequency: session.SubscriptionFrequency,
		Items:                 items,
	}
}

func markLines(order *models.Order, oversold []uuid.UUID) {
	set := make(map[uuid.UUID]struct{}, len(oversold))
	for _, id := range oversold {
		set[id] = struct{}{}
	}
	for i := range order.Items {
		if _, ok := set[order.Items[i].ID]; ok {
			order.Items[i].Oversold = true
		}
	}
}

func oversellDetails(order *models.Order) types.JSONMap {
	lines := make([]map[string]any, 0)
	for _, item := range order.Items {
		if !item.Oversold {
			continue
		}
		lines = append(lines, map[string]any{
			"line_item_id": item.ID,
			"product_id":   item.ProductID,
			"variant":      item.VariantKey,
			"quantity":     item.Quantity,
		})
	}
	return types.JSONMap{"order_number": order.OrderNumber, "lines": lines}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
