package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubPromotions struct {
	validate  func(ctx context.Context, accountID uuid.UUID, code string, orderValue int64) (promotions.Preview, error)
	create    func(ctx context.Context, input promotions.CreateInput) (*models.Promotion, error)
	list      func(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error)
	setActive func(ctx context.Context, id uuid.UUID, active bool) (*models.Promotion, error)
}

func (s *stubPromotions) IsEligible(ctx context.Context, promo *models.Promotion, accountID uuid.UUID, orderValue int64, now time.Time) (promotions.Eligibility, error) {
	return promotions.Eligibility{}, nil
}

func (s *stubPromotions) Validate(ctx context.Context, accountID uuid.UUID, code string, orderValue int64) (promotions.Preview, error) {
	return s.validate(ctx, accountID, code, orderValue)
}

func (s *stubPromotions) Create(ctx context.Context, input promotions.CreateInput) (*models.Promotion, error) {
	return s.create(ctx, input)
}

func (s *stubPromotions) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error) {
	return s.list(ctx, params)
}

func (s *stubPromotions) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Promotion, error) {
	return s.setActive(ctx, id, active)
}

func TestPromotionValidateIneligibleIsOK(t *testing.T) {
	accountID := uuid.New()
	svc := &stubPromotions{
		validate: func(ctx context.Context, id uuid.UUID, code string, orderValue int64) (promotions.Preview, error) {
			assert.Equal(t, accountID, id)
			assert.Equal(t, "WELCOME", code)
			assert.EqualValues(t, 30000, orderValue)
			return promotions.Preview{Code: code, Valid: false, Reason: "minimum order value not met"}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := customerRequest(http.MethodPost, "/api/v1/promotions/validate", `{"code":" WELCOME ","order_value_minor":30000}`, accountID)
	PromotionValidate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data promotions.Preview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, "minimum order value not met", resp.Data.Reason)
}

func TestPromotionValidateRejectsNegativeValue(t *testing.T) {
	rec := httptest.NewRecorder()
	req := customerRequest(http.MethodPost, "/", `{"code":"X1","order_value_minor":-1}`, uuid.New())
	PromotionValidate(&stubPromotions{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminPromotionCreate(t *testing.T) {
	var got promotions.CreateInput
	svc := &stubPromotions{
		create: func(ctx context.Context, input promotions.CreateInput) (*models.Promotion, error) {
			got = input
			return &models.Promotion{
				ID:            uuid.New(),
				Code:          "FESTIVE10",
				DiscountType:  enums.DiscountTypePercentage,
				DiscountValue: input.DiscountValue,
				IsActive:      true,
			}, nil
		},
	}

	body := `{"code":"FESTIVE10","discount_type":"percentage","discount_value":"10","min_order_value_minor":0,` +
		`"valid_from":"2026-10-01T00:00:00Z","valid_until":"2026-11-01T00:00:00Z"}`
	rec := httptest.NewRecorder()
	AdminPromotionCreate(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/v1/promotions", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, got.DiscountValue.Equal(decimal.NewFromInt(10)))
	assert.Contains(t, rec.Body.String(), `"code":"FESTIVE10"`)
	assert.Contains(t, rec.Body.String(), `"is_active":true`)
}

func TestAdminPromotionCreateDuplicate(t *testing.T) {
	svc := &stubPromotions{
		create: func(ctx context.Context, input promotions.CreateInput) (*models.Promotion, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion code already exists")
		},
	}
	body := `{"code":"FESTIVE10","discount_type":"flat","discount_value":"5000","min_order_value_minor":0,` +
		`"valid_from":"2026-10-01T00:00:00Z","valid_until":"2026-11-01T00:00:00Z"}`
	rec := httptest.NewRecorder()
	AdminPromotionCreate(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminPromotionList(t *testing.T) {
	svc := &stubPromotions{
		list: func(ctx context.Context, params pagination.Params) (pagination.Page[models.Promotion], error) {
			assert.Equal(t, pagination.DefaultLimit, params.Limit)
			return pagination.Page[models.Promotion]{
				Items: []models.Promotion{{ID: uuid.New(), Code: "A"}, {ID: uuid.New(), Code: "B"}},
			}, nil
		},
	}
	rec := httptest.NewRecorder()
	AdminPromotionList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/promotions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data pagination.Page[promotionResponse] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 2)
	assert.Equal(t, "B", resp.Data.Items[1].Code)
}

func TestAdminPromotionSetActive(t *testing.T) {
	promotionID := uuid.New()
	svc := &stubPromotions{
		setActive: func(ctx context.Context, id uuid.UUID, active bool) (*models.Promotion, error) {
			assert.Equal(t, promotionID, id)
			assert.False(t, active)
			return &models.Promotion{ID: id, Code: "OFF", IsActive: false}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"is_active":false}`))
	req = withChiParam(req, "promotionId", promotionID.String())
	rec := httptest.NewRecorder()
	AdminPromotionSetActive(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"is_active":false`)
}

func TestAdminPromotionSetActiveRequiresFlag(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`))
	req = withChiParam(req, "promotionId", uuid.NewString())
	rec := httptest.NewRecorder()
	AdminPromotionSetActive(&stubPromotions{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
