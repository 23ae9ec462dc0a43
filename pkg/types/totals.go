package types

// DisplayTotals carries presentation-rounded money strings for a quote.
type DisplayTotals struct {
	Subtotal    string `json:"subtotal"`
	TaxTotal    string `json:"tax_total"`
	DeliveryFee string `json:"delivery_fee"`
	FinalTotal  string `json:"final_total"`
}
