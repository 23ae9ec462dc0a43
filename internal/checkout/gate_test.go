package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukahq/storefront-backend/internal/cart"
	"github.com/dukahq/storefront-backend/internal/catalog"
	"github.com/dukahq/storefront-backend/internal/payments"
	"github.com/dukahq/storefront-backend/pkg/db/models"
	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/pubsub"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

type memCarts struct {
	mu      sync.Mutex
	data    map[string][]cart.Entry
	cleared int
}

func newMemCarts() *memCarts {
	return &memCarts{data: make(map[string][]cart.Entry)}
}

func (m *memCarts) set(sessionID string, entries []cart.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = entries
}

func (m *memCarts) Snapshot(_ context.Context, sessionID string) ([]cart.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Entry(nil), m.data[sessionID]...), nil
}

func (m *memCarts) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	m.cleared++
	return nil
}

type stubCatalog struct {
	snap *catalog.Snapshot
}

func (s *stubCatalog) Snapshot(_ context.Context) (*catalog.Snapshot, error) {
	return s.snap, nil
}

type memLedger struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*models.PaymentAttempt
	order    []uuid.UUID
}

func newMemLedger() *memLedger {
	return &memLedger{attempts: make(map[uuid.UUID]*models.PaymentAttempt)}
}

func (m *memLedger) RecordDispatch(_ context.Context, attempt *models.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt.ID = uuid.New()
	attempt.Status = enums.PaymentStatusDispatched
	m.attempts[attempt.ID] = attempt
	m.order = append(m.order, attempt.ID)
	return nil
}

func (m *memLedger) setStatus(attemptID uuid.UUID, status enums.PaymentStatus, ref, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[attemptID]
	if !ok {
		return errors.New("attempt not found")
	}
	attempt.Status = status
	if ref != "" {
		attempt.ProviderRef = &ref
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}
	return nil
}

func (m *memLedger) MarkSucceeded(_ context.Context, id uuid.UUID, ref string) error {
	return m.setStatus(id, enums.PaymentStatusSucceeded, ref, "")
}

func (m *memLedger) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	return m.setStatus(id, enums.PaymentStatusFailed, "", reason)
}

func (m *memLedger) MarkOrphaned(_ context.Context, id uuid.UUID, reason string) error {
	return m.setStatus(id, enums.PaymentStatusOrphaned, "", reason)
}

func (m *memLedger) latest() *models.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil
	}
	return m.attempts[m.order[len(m.order)-1]]
}

type memPublisher struct {
	mu     sync.Mutex
	events []pubsub.ReconciliationEvent
}

func (m *memPublisher) PublishReconciliation(_ context.Context, event pubsub.ReconciliationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

type gateProvider struct {
	method  enums.PaymentMethod
	result  *payments.ChargeResult
	err     error
	block   chan struct{}
	mu      sync.Mutex
	amounts []float64
}

func (p *gateProvider) Method() enums.PaymentMethod { return p.method }

func (p *gateProvider) Charge(_ context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	p.mu.Lock()
	p.amounts = append(p.amounts, req.Amount)
	p.mu.Unlock()
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.result != nil {
		return p.result, nil
	}
	return &payments.ChargeResult{ProviderRef: "ref-1"}, nil
}

type fixture struct {
	gate      *Gate
	carts     *memCarts
	ledger    *memLedger
	publisher *memPublisher
	provider  *gateProvider
}

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "prod-a", Name: "Rice 5kg", BasePrice: 100, DiscountedPrice: floatPtr(80), DiscountThreshold: intPtr(5), TaxRate: 0.16},
		{ID: "prod-b", Name: "Cooking Gas 6kg", BasePrice: 50, PurchaseCap: intPtr(2)},
	}
}

func newFixture(t *testing.T, providers ...payments.Provider) *fixture {
	t.Helper()

	f := &fixture{
		carts:     newMemCarts(),
		ledger:    newMemLedger(),
		publisher: &memPublisher{},
		provider:  &gateProvider{method: enums.PaymentMethodMobileMoneyA},
	}
	if len(providers) == 0 {
		providers = []payments.Provider{f.provider}
	}

	registry, err := payments.NewRegistry(providers...)
	require.NoError(t, err)

	gate, err := NewGate(Options{
		Carts:       f.carts,
		Catalog:     &stubCatalog{snap: catalog.NewSnapshot(testProducts())},
		Registry:    registry,
		Ledger:      f.ledger,
		Publisher:   f.publisher,
		Logger:      logger.New(logger.Options{ServiceName: "checkout-test"}),
		DeliveryFee: 10,
		Currency:    "KES",
	})
	require.NoError(t, err)
	f.gate = gate
	return f
}

func TestProceed_EmptyCartRefused(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.Proceed(context.Background(), "sess-1")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeEmptyCart, typed.Code())

	// the gate never reached SummaryPresented
	summary, err := f.gate.State(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.NotEqual(t, enums.CheckoutStateSummaryPresented, summary.State)
}

func TestProceed_CapViolationRefusedAndNamed(t *testing.T) {
	f := newFixture(t)
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-b", Quantity: 3}})

	_, err := f.gate.Proceed(context.Background(), "sess-1")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	messages := details["messages"].([]string)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Cooking Gas 6kg")
}

func TestProceed_PresentsFreshSummary(t *testing.T) {
	f := newFixture(t)
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 3}})

	summary, err := f.gate.Proceed(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateSummaryPresented, summary.State)
	assert.Equal(t, "358.00", summary.Display.FinalTotal)
	assert.Empty(t, summary.Violations)
}

func TestSelectMethod_RequiresSummary(t *testing.T) {
	f := newFixture(t)
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})

	_, err := f.gate.SelectMethod(context.Background(), "sess-1", enums.PaymentMethodMobileMoneyA)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestSelectMethod_RejectsUnknownMethod(t *testing.T) {
	f := newFixture(t)
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})
	_, err := f.gate.Proceed(context.Background(), "sess-1")
	require.NoError(t, err)

	_, err = f.gate.SelectMethod(context.Background(), "sess-1", "barter")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDispatch_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 3}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	summary, err := f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCompleted, summary.State)

	attempt := f.ledger.latest()
	require.NotNil(t, attempt)
	assert.Equal(t, enums.PaymentStatusSucceeded, attempt.Status)
	assert.Equal(t, int64(35800), attempt.AmountMinorUnits)
	require.NotNil(t, attempt.ProviderRef)
	assert.Equal(t, "ref-1", *attempt.ProviderRef)

	// the cart is consumed by a completed checkout
	entries, err := f.carts.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatch_RecomputesBeforeCharging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 3}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	// cart edited after the summary was presented: qty 3 -> 5 crosses the
	// discount threshold, so the charge must use the new total
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 5}})

	_, err = f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
	require.NoError(t, err)

	require.Len(t, f.provider.amounts, 1)
	assert.InDelta(t, 474, f.provider.amounts[0], 1e-9)
	assert.Equal(t, int64(47400), f.ledger.latest().AmountMinorUnits)
}

func TestDispatch_CartEmptiedMidCheckoutRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 3}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	f.carts.set("sess-1", nil)

	_, err = f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())
	assert.Empty(t, f.provider.amounts)
}

func TestDispatch_WithoutMethodRefused(t *testing.T) {
	f := newFixture(t)
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})

	_, err := f.gate.Dispatch(context.Background(), "sess-1", DispatchInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDispatch_FailureAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("provider timeout")
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	_, err = f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Equal(t, enums.PaymentStatusFailed, f.ledger.latest().Status)

	// retry: re-select the method and dispatch again
	f.provider.err = nil
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)
	summary, err := f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCompleted, summary.State)
}

func TestDispatch_AtMostOneInFlight(t *testing.T) {
	f := newFixture(t)
	f.provider.block = make(chan struct{})
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
		done <- err
	}()

	// wait for the first dispatch to reach the provider
	require.Eventually(t, func() bool {
		f.provider.mu.Lock()
		defer f.provider.mu.Unlock()
		return len(f.provider.amounts) == 1
	}, time.Second, 5*time.Millisecond)

	_, err = f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	close(f.provider.block)
	require.NoError(t, <-done)
}

func TestCancel_LateResultOrphanedAndPublished(t *testing.T) {
	f := newFixture(t)
	f.provider.block = make(chan struct{})
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.gate.Dispatch(ctx, "sess-1", DispatchInput{PayerPhone: "254700000001"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		f.provider.mu.Lock()
		defer f.provider.mu.Unlock()
		return len(f.provider.amounts) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.gate.Cancel(ctx, "sess-1"))
	close(f.provider.block)

	err = <-done
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// the late success never mutated the gate, the cart survives, and the
	// attempt went to reconciliation
	summary, err := f.gate.State(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotEqual(t, enums.CheckoutStateCompleted, summary.State)
	entries, err := f.carts.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Equal(t, enums.PaymentStatusOrphaned, f.ledger.latest().Status)
	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "succeeded", f.publisher.events[0].Outcome)
	assert.Equal(t, "sess-1", f.publisher.events[0].SessionID)
}

func TestInvalidate_DropsBackToReviewing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.set("sess-1", []cart.Entry{{ProductID: "prod-a", Quantity: 1}})

	_, err := f.gate.Proceed(ctx, "sess-1")
	require.NoError(t, err)
	_, err = f.gate.SelectMethod(ctx, "sess-1", enums.PaymentMethodMobileMoneyA)
	require.NoError(t, err)

	f.gate.Invalidate("sess-1")

	summary, err := f.gate.State(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateReviewingCart, summary.State)
	assert.Empty(t, summary.Method)
}

func TestQuote_MissingProductFlaggedButPriced(t *testing.T) {
	f := newFixture(t)
	f.carts.set("sess-1", []cart.Entry{
		{ProductID: "ghost", Quantity: 2},
		{ProductID: "prod-a", Quantity: 1},
	})

	summary, err := f.gate.Quote(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	assert.NotEmpty(t, summary.Lines[0].Warnings)
	assert.InDelta(t, 0, summary.Lines[0].LineSubtotal, 1e-9)

	// the stale line does not wedge checkout for the valid items
	_, err = f.gate.Proceed(context.Background(), "sess-1")
	require.NoError(t, err)
}
