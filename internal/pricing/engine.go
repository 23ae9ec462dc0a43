package pricing

import (
	"github.com/dukahq/storefront-backend/pkg/money"
	"github.com/dukahq/storefront-backend/pkg/types"
)

// PricedLine is a line item with its computed amounts. All amounts stay in
// raw float64; rounding happens only when formatting for display or
// converting to minor units at the payment boundary.
type PricedLine struct {
	LineItem
	EffectiveUnitPrice float64
	LineSubtotal       float64
	LineTax            float64
	LineTotalWithTax   float64
	CapExceeded        bool
}

// Totals aggregates a full cart.
type Totals struct {
	Subtotal    float64
	TaxTotal    float64
	DeliveryFee float64
	FinalTotal  float64
}

// Quote is the result of one pricing pass.
type Quote struct {
	Lines  []PricedLine
	Totals Totals
}

// Price computes per-line and aggregate amounts. The quantity discount
// applies iff the product defines a discounted price and the quantity meets
// its threshold; an absent threshold never triggers the discount. The
// delivery fee is charged once per checkout regardless of line count.
// Pure: identical inputs always produce identical totals.
func Price(lines []LineItem, deliveryFee float64) Quote {
	priced := make([]PricedLine, 0, len(lines))

	var subtotal, taxTotal float64
	for _, line := range lines {
		unit := effectiveUnitPrice(line)
		lineSubtotal := unit * float64(line.Quantity)
		lineTax := lineSubtotal * line.TaxRate

		priced = append(priced, PricedLine{
			LineItem:           line,
			EffectiveUnitPrice: unit,
			LineSubtotal:       lineSubtotal,
			LineTax:            lineTax,
			LineTotalWithTax:   lineSubtotal + lineTax,
			CapExceeded:        exceedsCap(line),
		})

		subtotal += lineSubtotal
		taxTotal += lineTax
	}

	return Quote{
		Lines: priced,
		Totals: Totals{
			Subtotal:    subtotal,
			TaxTotal:    taxTotal,
			DeliveryFee: deliveryFee,
			FinalTotal:  subtotal + taxTotal + deliveryFee,
		},
	}
}

// IsEmpty reports whether the quote covers zero lines.
func (q Quote) IsEmpty() bool {
	return len(q.Lines) == 0
}

// DisplayTotals renders the totals with 2-decimal money formatting.
func (q Quote) DisplayTotals() types.DisplayTotals {
	return types.DisplayTotals{
		Subtotal:    money.Format(q.Totals.Subtotal),
		TaxTotal:    money.Format(q.Totals.TaxTotal),
		DeliveryFee: money.Format(q.Totals.DeliveryFee),
		FinalTotal:  money.Format(q.Totals.FinalTotal),
	}
}

func effectiveUnitPrice(line LineItem) float64 {
	if line.DiscountedPrice != nil && line.DiscountThreshold != nil && line.Quantity >= *line.DiscountThreshold {
		return *line.DiscountedPrice
	}
	return line.BasePrice
}

func exceedsCap(line LineItem) bool {
	return line.PurchaseCap != nil && line.Quantity > *line.PurchaseCap
}
