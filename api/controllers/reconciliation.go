package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/reconciliation"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type resolveExceptionRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

type exceptionResponse struct {
	ID                   uuid.UUID           `json:"id"`
	Kind                 enums.ExceptionKind `json:"kind"`
	CheckoutID           uuid.UUID           `json:"checkout_id"`
	OrderID              *uuid.UUID          `json:"order_id,omitempty"`
	AccountID            uuid.UUID           `json:"account_id"`
	GatewayIntentID      *string             `json:"gateway_order_id,omitempty"`
	GatewayTransactionID *string             `json:"gateway_payment_id,omitempty"`
	Details              types.JSONMap       `json:"details,omitempty"`
	ResolvedAt           *time.Time          `json:"resolved_at,omitempty"`
	ResolutionNote       *string             `json:"resolution_note,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

func newExceptionResponse(e *models.ReconciliationException) exceptionResponse {
	if e == nil {
		return exceptionResponse{}
	}
	return exceptionResponse{
		ID:                   e.ID,
		Kind:                 e.Kind,
		CheckoutID:           e.CheckoutID,
		OrderID:              e.OrderID,
		AccountID:            e.AccountID,
		GatewayIntentID:      e.GatewayIntentID,
		GatewayTransactionID: e.GatewayTransactionID,
		Details:              e.Details,
		ResolvedAt:           e.ResolvedAt,
		ResolutionNote:       e.ResolutionNote,
		CreatedAt:            e.CreatedAt,
	}
}

// AdminExceptionList pages open reconciliation exceptions, optionally by kind.
func AdminExceptionList(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var kind *enums.ExceptionKind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, err := enums.ParseExceptionKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
				return
			}
			kind = &parsed
		}

		page, err := svc.ListOpen(r.Context(), kind, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]exceptionResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newExceptionResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, pagination.Page[exceptionResponse]{Items: items, Meta: page.Meta})
	}
}

func AdminExceptionResolve(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}
		exceptionID, err := validators.ParseUUIDParam(r, "exceptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveExceptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.Resolve(r.Context(), exceptionID, validators.SanitizeString(payload.Note, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newExceptionResponse(resolved))
	}
}
