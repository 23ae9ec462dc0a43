package controllers

import (
	"context"
	"net/http"

	"github.com/dukahq/storefront-backend/api/middleware"
	"github.com/dukahq/storefront-backend/api/responses"
	"github.com/dukahq/storefront-backend/api/validators"
	"github.com/dukahq/storefront-backend/internal/checkout"
	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

type checkoutGate interface {
	Proceed(ctx context.Context, sessionID string) (*checkout.Summary, error)
	SelectMethod(ctx context.Context, sessionID string, method enums.PaymentMethod) (*checkout.Summary, error)
	Dispatch(ctx context.Context, sessionID string, input checkout.DispatchInput) (*checkout.Summary, error)
	Cancel(ctx context.Context, sessionID string) error
	State(ctx context.Context, sessionID string) (*checkout.Summary, error)
}

type selectMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=mobile-money-a mobile-money-b card"`
}

type dispatchRequest struct {
	PayerPhone string `json:"payer_phone,omitempty"`
	CardToken  string `json:"card_token,omitempty"`
}

// CheckoutProceed attempts the guarded transition to a presented summary.
func CheckoutProceed(gate checkoutGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		summary, err := gate.Proceed(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutSelectMethod records the chosen payment method.
func CheckoutSelectMethod(gate checkoutGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		var payload selectMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		summary, err := gate.SelectMethod(r.Context(), sessionID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutDispatch fires the payment attempt for the selected method.
func CheckoutDispatch(gate checkoutGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		var payload dispatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := gate.Dispatch(r.Context(), sessionID, checkout.DispatchInput{
			PayerPhone: payload.PayerPhone,
			CardToken:  payload.CardToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutCancel tears the checkout session down without touching the cart.
func CheckoutCancel(gate checkoutGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		if err := gate.Cancel(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// CheckoutState reports the gate state with a fresh summary attached.
func CheckoutState(gate checkoutGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		summary, err := gate.State(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
