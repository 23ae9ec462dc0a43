package payments

import (
	"context"
	"fmt"

	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
)

// ChargeRequest carries everything a provider needs for one dispatch.
// Amount is in currency units with 2-decimal semantics; providers convert to
// their own units at the boundary.
type ChargeRequest struct {
	SessionID  string
	Amount     float64
	PayerPhone string
	CardToken  string
	Reference  string
}

// ChargeResult is a provider's acknowledgement of a dispatch.
type ChargeResult struct {
	ProviderRef string
	Description string
}

// Provider is the payment dispatcher boundary. Implementations own the full
// funds-transfer protocol; callers only learn whether the dispatch was
// accepted and under which provider reference.
type Provider interface {
	Method() enums.PaymentMethod
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Registry routes a selected payment method to its provider.
type Registry struct {
	providers map[enums.PaymentMethod]Provider
}

// NewRegistry indexes the given providers by method. Duplicate methods are a
// wiring bug and fail construction.
func NewRegistry(providers ...Provider) (*Registry, error) {
	indexed := make(map[enums.PaymentMethod]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		method := p.Method()
		if _, exists := indexed[method]; exists {
			return nil, fmt.Errorf("duplicate payment provider for method %s", method)
		}
		indexed[method] = p
	}
	return &Registry{providers: indexed}, nil
}

// Provider returns the provider registered for the method.
func (r *Registry) Provider(method enums.PaymentMethod) (Provider, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	p, ok := r.providers[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment method %s is not available", method))
	}
	return p, nil
}

// Methods lists the methods with a registered provider.
func (r *Registry) Methods() []enums.PaymentMethod {
	out := make([]enums.PaymentMethod, 0, len(r.providers))
	for _, candidate := range []enums.PaymentMethod{
		enums.PaymentMethodMobileMoneyA,
		enums.PaymentMethodMobileMoneyB,
		enums.PaymentMethodCard,
	} {
		if _, ok := r.providers[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}
