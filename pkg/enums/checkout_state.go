package enums

import "fmt"

// CheckoutState tracks where a cart session sits in the checkout flow.
type CheckoutState string

const (
	CheckoutStateIdle             CheckoutState = "idle"
	CheckoutStateReviewingCart    CheckoutState = "reviewing_cart"
	CheckoutStateSummaryPresented CheckoutState = "summary_presented"
	CheckoutStateMethodSelected   CheckoutState = "method_selected"
	CheckoutStateAwaitingPayment  CheckoutState = "awaiting_payment_result"
	CheckoutStateCompleted        CheckoutState = "completed"
	CheckoutStateFailed           CheckoutState = "failed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateReviewingCart,
	CheckoutStateSummaryPresented,
	CheckoutStateMethodSelected,
	CheckoutStateAwaitingPayment,
	CheckoutStateCompleted,
	CheckoutStateFailed,
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
