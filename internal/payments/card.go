package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/money"
	"github.com/dukahq/storefront-backend/pkg/square"
)

// cardProvider charges an externally tokenized card through Square. Card
// capture happens client-side; only the opaque token reaches this boundary.
type cardProvider struct {
	client *square.Client
}

// NewCardProvider wraps the Square client as a payment provider.
func NewCardProvider(client *square.Client) (Provider, error) {
	if client == nil {
		return nil, errors.New("square client is required")
	}
	return &cardProvider{client: client}, nil
}

func (p *cardProvider) Method() enums.PaymentMethod {
	return enums.PaymentMethodCard
}

func (p *cardProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	token := strings.TrimSpace(req.CardToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token is required for card payment")
	}

	payment, err := p.client.ChargeCard(ctx, square.ChargeParams{
		AmountCents: money.ToMinorUnits(req.Amount),
		SourceID:    token,
		ReferenceID: req.Reference,
		Note:        "storefront checkout",
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "card dispatch failed")
	}

	result := &ChargeResult{}
	if id := payment.GetID(); id != nil {
		result.ProviderRef = *id
	}
	if status := payment.GetStatus(); status != nil {
		result.Description = *status
	}
	return result, nil
}
