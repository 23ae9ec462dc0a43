package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/db"
	"github.com/dukahq/storefront-backend/pkg/db/models"
	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, logger.New(logger.Options{ServiceName: "ledger-test"}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(&models.PaymentAttempt{}))

	ledger, err := NewLedger(client)
	require.NoError(t, err)
	return ledger
}

func phonePtr(s string) *string { return &s }

func TestLedger_RecordAndFind(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	attempt := &models.PaymentAttempt{
		SessionID:        "sess-1",
		Method:           enums.PaymentMethodMobileMoneyA,
		AmountMinorUnits: 35800,
		Currency:         "KES",
		PayerPhone:       phonePtr("254700000001"),
	}
	require.NoError(t, ledger.RecordDispatch(ctx, attempt))
	require.NotEqual(t, uuid.Nil, attempt.ID)
	assert.Equal(t, enums.PaymentStatusDispatched, attempt.Status)

	found, err := ledger.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", found.SessionID)
	assert.Equal(t, int64(35800), found.AmountMinorUnits)
}

func TestLedger_StatusTransitions(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	attempt := &models.PaymentAttempt{
		SessionID:        "sess-1",
		Method:           enums.PaymentMethodCard,
		AmountMinorUnits: 1000,
		Currency:         "KES",
	}
	require.NoError(t, ledger.RecordDispatch(ctx, attempt))

	require.NoError(t, ledger.MarkSucceeded(ctx, attempt.ID, "sq-payment-1"))
	found, err := ledger.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSucceeded, found.Status)
	require.NotNil(t, found.ProviderRef)
	assert.Equal(t, "sq-payment-1", *found.ProviderRef)

	require.NoError(t, ledger.MarkFailed(ctx, attempt.ID, "declined"))
	found, err = ledger.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, found.Status)
	require.NotNil(t, found.FailureReason)
	assert.Equal(t, "declined", *found.FailureReason)

	require.NoError(t, ledger.MarkOrphaned(ctx, attempt.ID, "session cancelled before result"))
	found, err = ledger.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusOrphaned, found.Status)
}

func TestLedger_UpdateMissingAttempt(t *testing.T) {
	ledger := newTestLedger(t)

	err := ledger.MarkSucceeded(context.Background(), uuid.New(), "ref")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestLedger_FindBySessionNewestFirst(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.RecordDispatch(ctx, &models.PaymentAttempt{
			SessionID:        "sess-1",
			Method:           enums.PaymentMethodMobileMoneyB,
			AmountMinorUnits: int64(100 * (i + 1)),
			Currency:         "KES",
		}))
	}
	require.NoError(t, ledger.RecordDispatch(ctx, &models.PaymentAttempt{
		SessionID:        "sess-2",
		Method:           enums.PaymentMethodCard,
		AmountMinorUnits: 500,
		Currency:         "KES",
	}))

	attempts, err := ledger.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
	for _, a := range attempts {
		assert.Equal(t, "sess-1", a.SessionID)
	}
}
