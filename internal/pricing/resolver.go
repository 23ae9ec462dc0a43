package pricing

import (
	"fmt"

	"github.com/dukahq/storefront-backend/internal/cart"
	"github.com/dukahq/storefront-backend/internal/catalog"
	"github.com/dukahq/storefront-backend/pkg/enums"
	"github.com/dukahq/storefront-backend/pkg/types"
)

// UnknownProductName labels lines whose product is absent from the snapshot.
const UnknownProductName = "Unknown product"

// LineItem joins one cart entry with its catalog record. Lines are rebuilt
// from scratch on every pricing pass and never stored.
type LineItem struct {
	ProductID         string
	Name              string
	ImageURL          string
	Quantity          int
	BasePrice         float64
	DiscountThreshold *int
	DiscountedPrice   *float64
	TaxRate           float64
	PurchaseCap       *int
	Warnings          types.LineWarnings
}

// Resolve joins cart entries with the catalog snapshot in cart insertion
// order. An entry whose product is missing from the snapshot resolves to a
// zero-priced line flagged with a warning; it never blocks checkout on its
// own. Entries with non-positive quantities are treated as removed.
func Resolve(entries []cart.Entry, snapshot *catalog.Snapshot) []LineItem {
	lines := make([]LineItem, 0, len(entries))
	for _, entry := range entries {
		if entry.ProductID == "" || entry.Quantity <= 0 {
			continue
		}

		product, found := snapshot.Product(entry.ProductID)
		if !found {
			lines = append(lines, LineItem{
				ProductID: entry.ProductID,
				Name:      UnknownProductName,
				Quantity:  entry.Quantity,
				Warnings: types.LineWarnings{{
					Type:    enums.LineWarningTypeMissingCatalogData,
					Message: fmt.Sprintf("product %s is no longer available; priced at zero", entry.ProductID),
				}},
			})
			continue
		}

		lines = append(lines, LineItem{
			ProductID:         product.ID,
			Name:              product.Name,
			ImageURL:          product.ImageURL,
			Quantity:          entry.Quantity,
			BasePrice:         product.BasePrice,
			DiscountThreshold: product.DiscountThreshold,
			DiscountedPrice:   product.DiscountedPrice,
			TaxRate:           product.TaxRate,
			PurchaseCap:       product.PurchaseCap,
		})
	}
	return lines
}
