package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ErrNotFound is returned when no order matches.
var ErrNotFound = errors.New("orders: not found")

const (
	orderCounterName  = "orders"
	orderSequenceName = "order_number_seq"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// NextSequence allocates the next order sequence. On Postgres it draws from
// order_number_seq, whose nextval neither blocks concurrent callers nor rolls
// back, so it must be called outside the commit transaction. Other dialects
// bump the order_counters row in a short transaction of its own.
func (r *repository) NextSequence(ctx context.Context) (int64, error) {
	conn := r.db.WithContext(ctx)
	if conn.Dialector != nil && conn.Dialector.Name() == "postgres" {
		var next int64
		if err := conn.Raw("SELECT nextval(?::regclass)", orderSequenceName).Scan(&next).Error; err != nil {
			return 0, fmt.Errorf("allocate order sequence: %w", err)
		}
		return next, nil
	}

	var next int64
	err := conn.Transaction(func(tx *gorm.DB) error {
		seed := models.OrderCounter{Name: orderCounterName, Value: 0}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed order counter: %w", err)
		}
		if err := tx.Model(&models.OrderCounter{}).
			Where("name = ?", orderCounterName).
			UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
			return fmt.Errorf("increment order counter: %w", err)
		}
		var counter models.OrderCounter
		if err := tx.Where("name = ?", orderCounterName).First(&counter).Error; err != nil {
			return fmt.Errorf("read order counter: %w", err)
		}
		next = counter.Value
		return nil
	})
	return next, err
}

func (r *repository) MarkOversold(ctx context.Context, orderID uuid.UUID, lineItemIDs []uuid.UUID) error {
	if len(lineItemIDs) == 0 {
		return nil
	}
	conn := r.db.WithContext(ctx)
	if err := conn.Model(&models.OrderLineItem{}).
		Where("order_id = ? AND id IN ?", orderID, lineItemIDs).
		UpdateColumn("oversold", true).Error; err != nil {
		return fmt.Errorf("flag oversold lines: %w", err)
	}
	if err := conn.Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("needs_reconciliation", true).Error; err != nil {
		return fmt.Errorf("flag order for reconciliation: %w", err)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", orderID)
}

func (r *repository) FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "checkout_id = ?", checkoutID)
}

func (r *repository) findOne(ctx context.Context, where string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Where(where, arg).
		First(&order).Error
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if filters.AccountID != nil {
		query = query.Where("account_id = ?", *filters.AccountID)
	}
	if filters.Status != nil {
		query = query.Where("order_status = ?", *filters.Status)
	}
	if filters.NeedsReconciliation != nil {
		query = query.Where("needs_reconciliation = ?", *filters.NeedsReconciliation)
	}

	var rows []models.Order
	if err := pagination.Newest(query, "", cursor, params.Limit).Find(&rows).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// UpdateFulfillment moves the order from one status to another only if it is
// still in the expected status.
func (r *repository) UpdateFulfillment(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, tracking *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"order_status": to,
		"updated_at":   at,
	}
	if tracking != nil {
		updates["tracking_number"] = *tracking
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
