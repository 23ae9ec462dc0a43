package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/momo"
	"github.com/dukahq/storefront-backend/pkg/money"
)

// mobileMoneyProvider adapts the shared push-payment client to the dispatcher
// boundary. Providers A and B are two instances with different credentials.
type mobileMoneyProvider struct {
	client *momo.Client
	method enums.PaymentMethod
}

// NewMobileMoneyProvider wraps a configured push-payment client.
func NewMobileMoneyProvider(client *momo.Client, method enums.PaymentMethod) (Provider, error) {
	if client == nil {
		return nil, errors.New("mobile money client is required")
	}
	if !method.RequiresPayerPhone() {
		return nil, errors.New("method is not a mobile money method")
	}
	return &mobileMoneyProvider{client: client, method: method}, nil
}

func (p *mobileMoneyProvider) Method() enums.PaymentMethod {
	return p.method
}

func (p *mobileMoneyProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	phone := strings.TrimSpace(req.PayerPhone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer phone is required for mobile money")
	}

	resp, err := p.client.Push(ctx, momo.PushRequest{
		AmountUnits: money.ToWholeUnits(req.Amount),
		PayerPhone:  phone,
		Reference:   req.Reference,
		Description: "storefront checkout",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mobile money dispatch failed")
	}

	return &ChargeResult{
		ProviderRef: resp.RequestID,
		Description: resp.Description,
	}, nil
}
