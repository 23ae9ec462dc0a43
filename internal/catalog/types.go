package catalog

import "encoding/json"

// Product is the typed, coerced catalog record the pricing core reads.
// Optional fields stay nil when the upstream record omits them.
type Product struct {
	ID                string
	Name              string
	ImageURL          string
	BasePrice         float64
	DiscountThreshold *int
	DiscountedPrice   *float64
	TaxRate           float64
	PurchaseCap       *int
}

// HasDiscount reports whether the product carries a usable quantity discount.
func (p Product) HasDiscount() bool {
	return p.DiscountedPrice != nil && p.DiscountThreshold != nil
}

// Category is a top-level catalog grouping.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subcategory nests under a category.
type Subcategory struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
}

// Inventory reports upstream stock for a product.
type Inventory struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// rawProduct mirrors the upstream wire shape. Numeric fields arrive sometimes
// as numbers, sometimes as strings, sometimes absent, so they decode as raw
// JSON and are coerced exactly once at ingest.
type rawProduct struct {
	ID                 json.RawMessage `json:"id"`
	Name               string          `json:"name"`
	Image              string          `json:"image"`
	Price              json.RawMessage `json:"price"`
	PriceAfterDiscount json.RawMessage `json:"priceAfterDiscount"`
	DiscountQuantity   json.RawMessage `json:"discountQuantity"`
	TaxRate            json.RawMessage `json:"taxRate"`
	PurchaseCap        json.RawMessage `json:"purchaseCap"`
}
