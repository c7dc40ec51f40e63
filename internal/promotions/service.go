package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes promotion previews to customers and management to admins.
type Service interface {
	IsEligible(ctx context.Context, promo *models.Promotion, accountID uuid.UUID, orderValue int64, now time.Time) (Eligibility, error)
	Validate(ctx context.Context, accountID uuid.UUID, code string, orderValue int64) (Preview, error)
	Create(ctx context.Context, input CreateInput) (*models.Promotion, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Promotion, error)
}

// Preview is the customer-facing result of validating a code against a cart value.
type Preview struct {
	Code          string `json:"code"`
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	DiscountMinor int64  `json:"discount_minor"`
}

// CreateInput carries the admin payload for a new promotion.
type CreateInput struct {
	Code               string          `json:"code" validate:"required,min=3,max=32"`
	Description        *string         `json:"description,omitempty"`
	DiscountType       string          `json:"discount_type" validate:"required"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	MaxDiscountMinor   *int64          `json:"max_discount_minor,omitempty" validate:"omitempty,gte=0"`
	MinOrderValueMinor int64           `json:"min_order_value_minor" validate:"gte=0"`
	UsageLimit         *int            `json:"usage_limit,omitempty" validate:"omitempty,gte=1"`
	ValidFrom          time.Time       `json:"valid_from" validate:"required"`
	ValidUntil         time.Time       `json:"valid_until" validate:"required"`
	IsActive           *bool           `json:"is_active,omitempty"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a promotions service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) IsEligible(ctx context.Context, promo *models.Promotion, accountID uuid.UUID, orderValue int64, now time.Time) (Eligibility, error) {
	if promo == nil {
		return ineligible(ReasonNotFound), nil
	}
	used, err := s.repo.HasRedeemed(ctx, promo.ID, accountID)
	if err != nil {
		return Eligibility{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check promotion redemption")
	}
	return CheckEligibility(promo, used, orderValue, now), nil
}

func (s *service) Validate(ctx context.Context, accountID uuid.UUID, code string, orderValue int64) (Preview, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Preview{}, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if orderValue < 0 {
		return Preview{}, pkgerrors.New(pkgerrors.CodeValidation, "order value must be non-negative")
	}

	preview := Preview{Code: normalized}
	promo, err := s.repo.GetByCode(ctx, normalized)
	if errors.Is(err, ErrNotFound) {
		preview.Reason = ReasonNotFound
		return preview, nil
	}
	if err != nil {
		return Preview{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}

	result, err := s.IsEligible(ctx, promo, accountID, orderValue, s.now().UTC())
	if err != nil {
		return Preview{}, err
	}
	preview.Valid = result.Valid
	preview.Reason = result.Reason
	if result.Valid {
		preview.DiscountMinor = Discount(promo, orderValue)
	}
	return preview, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Promotion, error) {
	code := NormalizeCode(input.Code)
	if code == "" || strings.ContainsAny(code, " \t") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code must be a single token")
	}
	discountType, err := enums.ParseDiscountType(input.DiscountType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type")
	}
	if !input.DiscountValue.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount_value must be positive")
	}
	if discountType == enums.DiscountTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_until must be after valid_from")
	}

	promo := &models.Promotion{
		Code:               code,
		Description:        input.Description,
		DiscountType:       discountType,
		DiscountValue:      input.DiscountValue,
		MaxDiscountMinor:   input.MaxDiscountMinor,
		MinOrderValueMinor: input.MinOrderValueMinor,
		UsageLimit:         input.UsageLimit,
		ValidFrom:          input.ValidFrom.UTC(),
		ValidUntil:         input.ValidUntil.UTC(),
		IsActive:           input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		if db.IsUniqueViolation(err, "code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promotion")
	}
	return promo, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error) {
	page, err := s.repo.List(ctx, params)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pagination.Page[models.Promotion]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if err != nil {
		return pagination.Page[models.Promotion]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotions")
	}
	return page, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Promotion, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promotion")
	}
	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload promotion")
	}
	return promo, nil
}
