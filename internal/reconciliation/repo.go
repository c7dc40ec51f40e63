package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ErrNotFound is returned when no exception matches.
var ErrNotFound = errors.New("reconciliation: exception not found")

// ErrAlreadyResolved is returned when resolving an exception twice.
var ErrAlreadyResolved = errors.New("reconciliation: exception already resolved")

// Repository manages persistence for reconciliation exceptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, exception *models.ReconciliationException) error
	Get(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error)
	CountOpen(ctx context.Context, checkoutID uuid.UUID, kind enums.ExceptionKind) (int64, error)
	ListOpen(ctx context.Context, kind *enums.ExceptionKind, params pagination.Params) (pagination.Page[models.ReconciliationException], error)
	ListByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]models.ReconciliationException, error)
	MarkResolved(ctx context.Context, id uuid.UUID, note string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconciliation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, exception *models.ReconciliationException) error {
	return r.db.WithContext(ctx).Create(exception).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error) {
	var exception models.ReconciliationException
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exception).Error
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exception, nil
}

func (r *repository) CountOpen(ctx context.Context, checkoutID uuid.UUID, kind enums.ExceptionKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReconciliationException{}).
		Where("checkout_id = ? AND kind = ? AND resolved_at IS NULL", checkoutID, kind).
		Count(&count).Error
	return count, err
}

func (r *repository) ListOpen(ctx context.Context, kind *enums.ExceptionKind, params pagination.Params) (pagination.Page[models.ReconciliationException], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.ReconciliationException]{}, err
	}
	query := r.db.WithContext(ctx).
		Model(&models.ReconciliationException{}).
		Where("resolved_at IS NULL")
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}

	var rows []models.ReconciliationException
	if err := pagination.Newest(query, "", cursor, params.Limit).Find(&rows).Error; err != nil {
		return pagination.Page[models.ReconciliationException]{}, err
	}
	return pagination.Build(rows, params.Limit, func(e models.ReconciliationException) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	}), nil
}

func (r *repository) ListByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]models.ReconciliationException, error) {
	var rows []models.ReconciliationException
	if err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkResolved sets the resolution fields only on an open exception.
func (r *repository) MarkResolved(ctx context.Context, id uuid.UUID, note string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.ReconciliationException{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]any{"resolved_at": at, "resolution_note": note})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyResolved
	}
	return nil
}
