package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dukahq/storefront-backend/api/responses"
	"github.com/dukahq/storefront-backend/internal/catalog"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/money"
	"github.com/dukahq/storefront-backend/pkg/pagination"
)

type catalogSource interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type productView struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	ImageURL           string   `json:"image_url,omitempty"`
	Price              float64  `json:"price"`
	DisplayPrice       string   `json:"display_price"`
	PriceAfterDiscount *float64 `json:"price_after_discount,omitempty"`
	DiscountQuantity   *int     `json:"discount_quantity,omitempty"`
	TaxRate            float64  `json:"tax_rate"`
	PurchaseCap        *int     `json:"purchase_cap,omitempty"`
}

type productListResponse struct {
	Products   []productView `json:"products"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ProductList serves a paginated view of the current catalog snapshot.
func ProductList(source catalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		limit := 0
		if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
			parsed, err := strconv.Atoi(rawLimit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid limit"))
				return
			}
			limit = parsed
		}

		afterID, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		snap, err := source.Snapshot(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next := snap.Page(afterID, limit)
		views := make([]productView, 0, len(page))
		for _, p := range page {
			views = append(views, toProductView(p))
		}

		responses.WriteSuccess(w, productListResponse{Products: views, NextCursor: next})
	}
}

func toProductView(p catalog.Product) productView {
	return productView{
		ID:                 p.ID,
		Name:               p.Name,
		ImageURL:           p.ImageURL,
		Price:              p.BasePrice,
		DisplayPrice:       money.Format(p.BasePrice),
		PriceAfterDiscount: p.DiscountedPrice,
		DiscountQuantity:   p.DiscountThreshold,
		TaxRate:            p.TaxRate,
		PurchaseCap:        p.PurchaseCap,
	}
}
