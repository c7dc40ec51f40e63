package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes order reads for customers and admins plus fulfillment updates.
type Service interface {
	ListForAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (pagination.Page[OrderSummary], error)
	GetForAccount(ctx context.Context, accountID, orderID uuid.UUID) (*OrderDetail, error)
	AdminList(ctx context.Context, filters AdminFilters, params pagination.Params) (pagination.Page[OrderSummary], error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	UpdateFulfillment(ctx context.Context, input UpdateFulfillmentInput) (*OrderDetail, error)
}

// UpdateFulfillmentInput describes an admin fulfillment change.
type UpdateFulfillmentInput struct {
	OrderID        uuid.UUID
	ActorID        uuid.UUID
	Status         enums.OrderStatus
	TrackingNumber *string
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds an orders service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, now: time.Now}, nil
}

func (s *service) ListForAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (pagination.Page[OrderSummary], error) {
	if accountID == uuid.Nil {
		return pagination.Page[OrderSummary]{}, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.list(ctx, ListFilters{AccountID: &accountID}, params)
}

func (s *service) GetForAccount(ctx context.Context, accountID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Another account's order is reported as missing rather than forbidden.
	if order.AccountID != accountID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return ToDetail(order), nil
}

func (s *service) AdminList(ctx context.Context, filters AdminFilters, params pagination.Params) (pagination.Page[OrderSummary], error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return pagination.Page[OrderSummary]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	return s.list(ctx, ListFilters{Status: filters.Status, NeedsReconciliation: filters.NeedsReconciliation}, params)
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToDetail(order), nil
}

func (s *service) UpdateFulfillment(ctx context.Context, input UpdateFulfillmentInput) (*OrderDetail, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	tracking := input.TrackingNumber
	if tracking != nil {
		trimmed := strings.TrimSpace(*tracking)
		if trimmed == "" {
			tracking = nil
		} else {
			tracking = &trimmed
		}
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		previous := order.Status
		if previous == input.Status {
			if tracking == nil {
				updated = order
				return nil
			}
		} else if !previous.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{"from": previous, "to": input.Status})
		}

		now := s.now().UTC()
		ok, err := repo.UpdateFulfillment(ctx, order.ID, previous, input.Status, tracking, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderFulfillmentUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.AccountActor(input.ActorID, enums.RoleAdmin.String()),
			OccurredAt:    now,
			Data: payloads.OrderFulfillmentUpdatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				AccountID:      order.AccountID,
				PreviousStatus: previous,
				Status:         input.Status,
				TrackingNumber: tracking,
				UpdatedAt:      now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit fulfillment event")
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToDetail(updated), nil
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[OrderSummary], error) {
	page, err := s.repo.List(ctx, filters, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return pagination.Page[OrderSummary]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return pagination.Page[OrderSummary]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderSummary, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, toSummary(order))
	}
	return pagination.Page[OrderSummary]{Items: items, Meta: page.Meta}, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// FormatOrderNumber renders the customer-facing order number from the commit
// time and the counter value.
func FormatOrderNumber(prefix string, at time.Time, sequence int64) string {
	return fmt.Sprintf("%s%d%04d", prefix, at.UnixMilli(), sequence)
}
