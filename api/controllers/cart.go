package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dukahq/storefront-backend/api/middleware"
	"github.com/dukahq/storefront-backend/api/responses"
	"github.com/dukahq/storefront-backend/api/validators"
	"github.com/dukahq/storefront-backend/internal/cart"
	"github.com/dukahq/storefront-backend/internal/checkout"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

type cartMutator interface {
	Add(ctx context.Context, sessionID, productID string, delta int) ([]cart.Entry, error)
	Remove(ctx context.Context, sessionID, productID string) ([]cart.Entry, error)
	Clear(ctx context.Context, sessionID string) error
}

type quoteSource interface {
	Quote(ctx context.Context, sessionID string) (*checkout.Summary, error)
	Invalidate(sessionID string)
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// CartFetch returns the current cart with a freshly computed quote.
func CartFetch(gate quoteSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		summary, err := gate.Quote(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CartAddItem merges a quantity delta into the cart. Negative deltas
// decrement; reaching zero removes the line.
func CartAddItem(store cartMutator, gate quoteSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := store.Add(r.Context(), sessionID, payload.ProductID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gate.Invalidate(sessionID)

		summary, err := gate.Quote(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CartRemoveItem drops a product from the cart entirely.
func CartRemoveItem(store cartMutator, gate quoteSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		if _, err := store.Remove(r.Context(), sessionID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gate.Invalidate(sessionID)

		summary, err := gate.Quote(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CartClear empties the cart.
func CartClear(store cartMutator, gate quoteSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing"))
			return
		}

		if err := store.Clear(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gate.Invalidate(sessionID)

		summary, err := gate.Quote(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
