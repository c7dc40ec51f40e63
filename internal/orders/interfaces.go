package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the order ledger tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	NextSequence(ctx context.Context) (int64, error)
	MarkOversold(ctx context.Context, orderID uuid.UUID, lineItemIDs []uuid.UUID) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Order], error)
	UpdateFulfillment(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, tracking *string, at time.Time) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
