package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/momo"
)

type stubProvider struct {
	method enums.PaymentMethod
	result *ChargeResult
	err    error
	calls  int
}

func (s *stubProvider) Method() enums.PaymentMethod { return s.method }

func (s *stubProvider) Charge(_ context.Context, _ ChargeRequest) (*ChargeResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestRegistry_RoutesByMethod(t *testing.T) {
	a := &stubProvider{method: enums.PaymentMethodMobileMoneyA}
	card := &stubProvider{method: enums.PaymentMethodCard}

	registry, err := NewRegistry(a, card)
	require.NoError(t, err)

	got, err := registry.Provider(enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)
	assert.Same(t, Provider(a), got)

	assert.Equal(t, []enums.PaymentMethod{
		enums.PaymentMethodMobileMoneyA,
		enums.PaymentMethodCard,
	}, registry.Methods())
}

func TestRegistry_UnknownMethod(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = registry.Provider("cash-on-delivery")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRegistry_UnregisteredMethod(t *testing.T) {
	registry, err := NewRegistry(&stubProvider{method: enums.PaymentMethodCard})
	require.NoError(t, err)

	_, err = registry.Provider(enums.PaymentMethodMobileMoneyB)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestRegistry_DuplicateMethodRejected(t *testing.T) {
	_, err := NewRegistry(
		&stubProvider{method: enums.PaymentMethodCard},
		&stubProvider{method: enums.PaymentMethodCard},
	)
	require.Error(t, err)
}

func newMomoTestProvider(t *testing.T, baseURL string, method enums.PaymentMethod) Provider {
	t.Helper()
	client, err := momo.NewClient(config.MobileMoneyConfig{
		BaseURL:        baseURL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/cb",
		RequestTimeout: 5 * time.Second,
	}, method.String(), logger.New(logger.Options{ServiceName: "payments-test"}))
	require.NoError(t, err)

	provider, err := NewMobileMoneyProvider(client, method)
	require.NoError(t, err)
	return provider
}

func TestMobileMoneyProvider_ChargeRoundsToWholeUnits(t *testing.T) {
	var gotAmount int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": "3599"})
		case "/push/v1/processrequest":
			var body struct {
				Amount int64 `json:"Amount"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			gotAmount = body.Amount
			_ = json.NewEncoder(w).Encode(map[string]any{"CheckoutRequestID": "ws_CO_1", "ResponseCode": "0"})
		}
	}))
	defer srv.Close()

	provider := newMomoTestProvider(t, srv.URL, enums.PaymentMethodMobileMoneyA)
	result, err := provider.Charge(context.Background(), ChargeRequest{
		SessionID:  "sess-1",
		Amount:     357.996,
		PayerPhone: "254700000001",
		Reference:  "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", result.ProviderRef)
	assert.Equal(t, int64(358), gotAmount)
}

func TestMobileMoneyProvider_RequiresPhone(t *testing.T) {
	provider := newMomoTestProvider(t, "https://provider.example", enums.PaymentMethodMobileMoneyB)

	_, err := provider.Charge(context.Background(), ChargeRequest{Amount: 100})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNewMobileMoneyProvider_RejectsCardMethod(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, err := momo.NewClient(config.MobileMoneyConfig{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/cb",
	}, "momo-a", logger.New(logger.Options{ServiceName: "payments-test"}))
	require.NoError(t, err)

	_, err = NewMobileMoneyProvider(client, enums.PaymentMethodCard)
	require.Error(t, err)
}
