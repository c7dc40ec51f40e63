package promotions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ErrNotFound is returned when no promotion matches.
var ErrNotFound = errors.New("promotions: not found")

// UsageResult is the outcome of ConditionalIncrementUsage.
type UsageResult string

const (
	UsageApplied     UsageResult = "applied"
	UsageCapReached  UsageResult = "cap_reached"
	UsageAlreadyUsed UsageResult = "already_used"
)

// Repository persists promotions and their per-account redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.Promotion) error
	GetByCode(ctx context.Context, code string) (*models.Promotion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	HasRedeemed(ctx context.Context, promotionID, accountID uuid.UUID) (bool, error)
	ConditionalIncrementUsage(ctx context.Context, code string, accountID, checkoutID uuid.UUID) (UsageResult, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promotions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promotion) error {
	promo.Code = NormalizeCode(promo.Code)
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) GetByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&promo).Error
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&promo).Error
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Promotion]{}, err
	}
	var rows []models.Promotion
	query := pagination.Newest(r.db.WithContext(ctx).Model(&models.Promotion{}), "", cursor, params.Limit)
	if err := query.Find(&rows).Error; err != nil {
		return pagination.Page[models.Promotion]{}, err
	}
	return pagination.Build(rows, params.Limit, func(p models.Promotion) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) HasRedeemed(ctx context.Context, promotionID, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromotionRedemption{}).
		Where("promotion_id = ? AND account_id = ?", promotionID, accountID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConditionalIncrementUsage claims the account's membership slot, then bumps
// used_count only while it is below the cap. Losing the cap race releases the
// membership row so the account is not marked as having used the code.
func (r *repository) ConditionalIncrementUsage(ctx context.Context, code string, accountID, checkoutID uuid.UUID) (UsageResult, error) {
	promo, err := r.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}

	redemption := models.PromotionRedemption{
		PromotionID: promo.ID,
		AccountID:   accountID,
		CheckoutID:  checkoutID,
	}
	inserted := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&redemption)
	if inserted.Error != nil {
		return "", fmt.Errorf("claim redemption: %w", inserted.Error)
	}
	if inserted.RowsAffected == 0 {
		return UsageAlreadyUsed, nil
	}

	bumped := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", promo.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if bumped.Error != nil {
		return "", fmt.Errorf("increment usage: %w", bumped.Error)
	}
	if bumped.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("id = ?", redemption.ID).Delete(&models.PromotionRedemption{}).Error; err != nil {
			return "", fmt.Errorf("release redemption: %w", err)
		}
		return UsageCapReached, nil
	}
	return UsageApplied, nil
}
