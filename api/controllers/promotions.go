package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type promotionValidateRequest struct {
	Code            string `json:"code" validate:"required,max=32"`
	OrderValueMinor int64  `json:"order_value_minor" validate:"gte=0"`
}

type promotionActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// PromotionValidate previews a code against the caller's cart value.
// Ineligible codes are a normal 200 answer carrying the reason.
func PromotionValidate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload promotionValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.Validate(r.Context(), accountID, strings.TrimSpace(payload.Code), payload.OrderValueMinor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

func AdminPromotionCreate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		var payload promotions.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPromotionResponse(promo))
	}
}

func AdminPromotionList(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]promotionResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newPromotionResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, pagination.Page[promotionResponse]{Items: items, Meta: page.Meta})
	}
}

// AdminPromotionSetActive toggles whether a promotion can be redeemed.
func AdminPromotionSetActive(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}
		promotionID, err := validators.ParseUUIDParam(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload promotionActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.SetActive(r.Context(), promotionID, *payload.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPromotionResponse(promo))
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

type promotionResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Code               string             `json:"code"`
	Description        *string            `json:"description,omitempty"`
	DiscountType       enums.DiscountType `json:"discount_type"`
	DiscountValue      decimal.Decimal    `json:"discount_value"`
	MaxDiscountMinor   *int64             `json:"max_discount_minor,omitempty"`
	MinOrderValueMinor int64              `json:"min_order_value_minor"`
	UsageLimit         *int               `json:"usage_limit,omitempty"`
	UsedCount          int                `json:"used_count"`
	ValidFrom          time.Time          `json:"valid_from"`
	ValidUntil         time.Time          `json:"valid_until"`
	IsActive           bool               `json:"is_active"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func newPromotionResponse(promo *models.Promotion) promotionResponse {
	if promo == nil {
		return promotionResponse{}
	}
	return promotionResponse{
		ID:                 promo.ID,
		Code:               promo.Code,
		Description:        promo.Description,
		DiscountType:       promo.DiscountType,
		DiscountValue:      promo.DiscountValue,
		MaxDiscountMinor:   promo.MaxDiscountMinor,
		MinOrderValueMinor: promo.MinOrderValueMinor,
		UsageLimit:         promo.UsageLimit,
		UsedCount:          promo.UsedCount,
		ValidFrom:          promo.ValidFrom,
		ValidUntil:         promo.ValidUntil,
		IsActive:           promo.IsActive,
		CreatedAt:          promo.CreatedAt,
		UpdatedAt:          promo.UpdatedAt,
	}
}
