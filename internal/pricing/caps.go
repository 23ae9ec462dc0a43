package pricing

import "fmt"

// CapViolation names one line that exceeds its purchase cap.
type CapViolation struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Cap       int    `json:"cap"`
}

// CapReport is the purchase-cap verdict for a priced cart.
type CapReport struct {
	AnyExceeded bool
	Violations  []CapViolation
}

// ValidateCaps checks every priced line against its purchase cap. A line
// violates only when a cap is defined and the quantity is strictly greater;
// quantity equal to the cap is allowed, and capless lines never violate.
func ValidateCaps(lines []PricedLine) CapReport {
	report := CapReport{}
	for _, line := range lines {
		if !line.CapExceeded {
			continue
		}
		report.AnyExceeded = true
		report.Violations = append(report.Violations, CapViolation{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Cap:       derefCap(line.PurchaseCap),
		})
	}
	return report
}

// Message renders the violation for user display.
func (v CapViolation) Message() string {
	return fmt.Sprintf("%s is limited to %d per order (requested %d)", v.Name, v.Cap, v.Quantity)
}

func derefCap(cap *int) int {
	if cap == nil {
		return 0
	}
	return *cap
}
