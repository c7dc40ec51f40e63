package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type quoteRequest struct {
	Lines         []pricing.CartLine `json:"lines" validate:"required,min=1,max=50,dive"`
	PromotionCode string             `json:"promotion_code,omitempty" validate:"omitempty,max=32"`
}

type intentRequest struct {
	Lines           []pricing.CartLine       `json:"lines" validate:"required,min=1,max=50,dive"`
	PromotionCode   string                   `json:"promotion_code,omitempty" validate:"omitempty,max=32"`
	ShippingAddress types.ShippingAddress    `json:"shipping_address"`
	Notes           *string                  `json:"notes,omitempty" validate:"omitempty,max=500"`
	Subscription    checkoutsvc.Subscription `json:"subscription"`
}

type confirmRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type confirmResponse struct {
	Order  *orders.OrderDetail `json:"order"`
	Status string              `json:"status"`
}

// CheckoutQuote prices the submitted cart without reserving anything.
func CheckoutQuote(svc checkoutsvc.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), accountID, payload.Lines, strings.TrimSpace(payload.PromotionCode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutCreateIntent reprices the cart and opens a gateway payment intent.
func CheckoutCreateIntent(svc checkoutsvc.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload intentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Notes != nil {
			notes := validators.SanitizeString(*payload.Notes, 500)
			payload.Notes = &notes
		}

		intent, err := svc.CreateIntent(r.Context(), checkoutsvc.CreateIntentInput{
			AccountID:       accountID,
			Lines:           payload.Lines,
			PromotionCode:   strings.TrimSpace(payload.PromotionCode),
			ShippingAddress: payload.ShippingAddress.Normalize(),
			Notes:           payload.Notes,
			Subscription:    payload.Subscription,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// CheckoutConfirm verifies the gateway proof and commits the order. A new
// order answers 201 and a replay of an already committed checkout answers 200.
func CheckoutConfirm(svc checkoutsvc.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "gateway_order_id", payload.GatewayOrderID)
		}

		result, err := svc.Confirm(ctx, checkoutsvc.ConfirmInput{
			AccountID:     accountID,
			IntentID:      strings.TrimSpace(payload.GatewayOrderID),
			TransactionID: strings.TrimSpace(payload.GatewayPaymentID),
			Signature:     strings.TrimSpace(payload.Signature),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result == nil || result.Order == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout confirmed without an order"))
			return
		}

		status := http.StatusOK
		label := "already_confirmed"
		if result.Created {
			status = http.StatusCreated
			label = "confirmed"
		}
		responses.WriteSuccessStatus(w, status, confirmResponse{Order: result.Order, Status: label})
	}
}

func accountFromRequest(r *http.Request) (uuid.UUID, error) {
	accountID := middleware.AccountIDFromContext(r.Context())
	if accountID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	return accountID, nil
}
