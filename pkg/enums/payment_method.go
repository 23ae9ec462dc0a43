package enums

import "fmt"

// PaymentMethod describes how a customer intends to pay for a checkout.
type PaymentMethod string

const (
	PaymentMethodMobileMoneyA PaymentMethod = "mobile-money-a"
	PaymentMethodMobileMoneyB PaymentMethod = "mobile-money-b"
	PaymentMethodCard         PaymentMethod = "card"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodMobileMoneyA,
	PaymentMethodMobileMoneyB,
	PaymentMethodCard,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresPayerPhone reports whether dispatching this method needs a phone number.
func (p PaymentMethod) RequiresPayerPhone() bool {
	return p == PaymentMethodMobileMoneyA || p == PaymentMethodMobileMoneyB
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
