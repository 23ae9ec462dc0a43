package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukahq/storefront-backend/internal/cart"
	"github.com/dukahq/storefront-backend/internal/catalog"
	"github.com/dukahq/storefront-backend/internal/payments"
	"github.com/dukahq/storefront-backend/internal/pricing"
	"github.com/dukahq/storefront-backend/pkg/db/models"
	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/metrics"
	"github.com/dukahq/storefront-backend/pkg/money"
	"github.com/dukahq/storefront-backend/pkg/pubsub"
	"github.com/dukahq/storefront-backend/pkg/types"
)

type cartReader interface {
	Snapshot(ctx context.Context, sessionID string) ([]cart.Entry, error)
	Clear(ctx context.Context, sessionID string) error
}

type snapshotter interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type attemptLedger interface {
	RecordDispatch(ctx context.Context, attempt *models.PaymentAttempt) error
	MarkSucceeded(ctx context.Context, attemptID uuid.UUID, providerRef string) error
	MarkFailed(ctx context.Context, attemptID uuid.UUID, reason string) error
	MarkOrphaned(ctx context.Context, attemptID uuid.UUID, reason string) error
}

type reconciliationPublisher interface {
	PublishReconciliation(ctx context.Context, event pubsub.ReconciliationEvent) error
}

// Summary is the gate's view of one checkout session: current state, the
// freshly computed quote, and the methods a customer may pick.
type Summary struct {
	State      enums.CheckoutState   `json:"state"`
	Method     enums.PaymentMethod   `json:"method,omitempty"`
	Lines      []pricing.PricedLine  `json:"lines"`
	Totals     pricing.Totals        `json:"totals"`
	Display    types.DisplayTotals   `json:"display"`
	Violations []pricing.CapViolation `json:"cap_violations,omitempty"`
	Methods    []enums.PaymentMethod `json:"available_methods"`
}

// session is the per-cart gate record. epoch increments on every cancel so a
// dispatch that resolves afterwards can tell its session was torn down.
type session struct {
	state    enums.CheckoutState
	method   enums.PaymentMethod
	inFlight bool
	epoch    uint64
}

// Gate owns checkout progression for every cart session. Quotes are always
// computed fresh from the current cart and catalog snapshot; the gate never
// caches totals across state transitions, so stale amounts cannot reach a
// payment provider.
type Gate struct {
	carts     cartReader
	catalog   snapshotter
	registry  *payments.Registry
	ledger    attemptLedger
	publisher reconciliationPublisher
	metrics   *metrics.CheckoutMetrics
	logger    *logger.Logger

	deliveryFee float64
	currency    string

	mu       sync.Mutex
	sessions map[string]*session
}

// Options wires the gate's collaborators. Publisher may be nil when no
// reconciliation topic is configured.
type Options struct {
	Carts       cartReader
	Catalog     snapshotter
	Registry    *payments.Registry
	Ledger      attemptLedger
	Publisher   reconciliationPublisher
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
	DeliveryFee float64
	Currency    string
}

// NewGate validates the wiring and builds the gate.
func NewGate(opts Options) (*Gate, error) {
	if opts.Carts == nil {
		return nil, errors.New("checkout gate requires a cart store")
	}
	if opts.Catalog == nil {
		return nil, errors.New("checkout gate requires a catalog source")
	}
	if opts.Registry == nil {
		return nil, errors.New("checkout gate requires a payment registry")
	}
	if opts.Ledger == nil {
		return nil, errors.New("checkout gate requires an attempts ledger")
	}
	if opts.Logger == nil {
		return nil, errors.New("checkout gate requires a logger")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCheckoutMetrics(nil)
	}
	currency := opts.Currency
	if currency == "" {
		currency = "KES"
	}
	return &Gate{
		carts:       opts.Carts,
		catalog:     opts.Catalog,
		registry:    opts.Registry,
		ledger:      opts.Ledger,
		publisher:   opts.Publisher,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		deliveryFee: opts.DeliveryFee,
		currency:    currency,
		sessions:    make(map[string]*session),
	}, nil
}

// Quote recomputes the cart's pricing without advancing the gate. Viewing the
// cart keeps the session in ReviewingCart.
func (g *Gate) Quote(ctx context.Context, sessionID string) (*Summary, error) {
	quote, report, err := g.freshQuote(ctx, sessionID, "review")
	if err != nil {
		return nil, err
	}

	sess := g.lookup(sessionID)
	g.mu.Lock()
	if !sess.inFlight && sess.state != enums.CheckoutStateCompleted {
		if quote.IsEmpty() {
			sess.state = enums.CheckoutStateIdle
		} else if sess.state == enums.CheckoutStateIdle {
			sess.state = enums.CheckoutStateReviewingCart
		}
	}
	state := sess.state
	method := sess.method
	g.mu.Unlock()

	return g.summary(state, method, quote, report), nil
}

// Proceed attempts ReviewingCart -> SummaryPresented. Refused for an empty
// cart and while any line exceeds its purchase cap; both leave the state
// untouched.
func (g *Gate) Proceed(ctx context.Context, sessionID string) (*Summary, error) {
	quote, report, err := g.freshQuote(ctx, sessionID, "proceed")
	if err != nil {
		g.metrics.IncProceed("error")
		return nil, err
	}

	if quote.IsEmpty() {
		g.metrics.IncProceed("empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	if report.AnyExceeded {
		g.metrics.IncProceed("cap_exceeded")
		return nil, capError(report)
	}

	sess := g.lookup(sessionID)
	g.mu.Lock()
	if sess.inFlight {
		g.mu.Unlock()
		g.metrics.IncProceed("in_flight")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment attempt is already in progress")
	}
	sess.state = enums.CheckoutStateSummaryPresented
	sess.method = ""
	g.mu.Unlock()

	g.metrics.IncProceed("ok")
	return g.summary(enums.CheckoutStateSummaryPresented, "", quote, report), nil
}

// SelectMethod records the customer's payment method choice. Allowed from
// SummaryPresented, from MethodSelected (re-selection), and from Failed
// (retry after a failed dispatch).
func (g *Gate) SelectMethod(ctx context.Context, sessionID string, method enums.PaymentMethod) (*Summary, error) {
	if _, err := g.registry.Provider(method); err != nil {
		return nil, err
	}

	sess := g.lookup(sessionID)
	g.mu.Lock()
	switch sess.state {
	case enums.CheckoutStateSummaryPresented, enums.CheckoutStateMethodSelected, enums.CheckoutStateFailed:
	default:
		state := sess.state
		g.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot select a payment method from state %s", state))
	}
	if sess.inFlight {
		g.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment attempt is already in progress")
	}
	sess.state = enums.CheckoutStateMethodSelected
	sess.method = method
	g.mu.Unlock()

	quote, report, err := g.freshQuote(ctx, sessionID, "review")
	if err != nil {
		return nil, err
	}
	return g.summary(enums.CheckoutStateMethodSelected, method, quote, report), nil
}

// DispatchInput carries the payer details for one payment attempt.
type DispatchInput struct {
	PayerPhone string
	CardToken  string
}

// Dispatch fires the payment attempt for the selected method. The quote is
// recomputed and re-guarded immediately before the provider call so a cart
// edited mid-checkout can never be charged at stale totals. At most one
// dispatch is in flight per session; concurrent attempts are refused.
func (g *Gate) Dispatch(ctx context.Context, sessionID string, input DispatchInput) (*Summary, error) {
	sess := g.lookup(sessionID)

	g.mu.Lock()
	if sess.inFlight {
		g.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment attempt is already in progress")
	}
	if sess.state != enums.CheckoutStateMethodSelected {
		state := sess.state
		g.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot dispatch payment from state %s", state))
	}
	method := sess.method
	epoch := sess.epoch
	sess.inFlight = true
	sess.state = enums.CheckoutStateAwaitingPayment
	g.mu.Unlock()

	summary, err := g.runDispatch(ctx, sessionID, sess, method, epoch, input)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (g *Gate) runDispatch(ctx context.Context, sessionID string, sess *session, method enums.PaymentMethod, epoch uint64, input DispatchInput) (*Summary, error) {
	// final validation pass on fresh data, after claiming the in-flight slot
	quote, report, err := g.freshQuote(ctx, sessionID, "dispatch")
	if err != nil {
		g.releaseTo(sess, enums.CheckoutStateMethodSelected)
		g.metrics.IncDispatch(method.String(), "error")
		return nil, err
	}
	if quote.IsEmpty() {
		g.releaseTo(sess, enums.CheckoutStateReviewingCart)
		g.metrics.IncDispatch(method.String(), "empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	if report.AnyExceeded {
		g.releaseTo(sess, enums.CheckoutStateReviewingCart)
		g.metrics.IncDispatch(method.String(), "cap_exceeded")
		return nil, capError(report)
	}

	provider, err := g.registry.Provider(method)
	if err != nil {
		g.releaseTo(sess, enums.CheckoutStateMethodSelected)
		g.metrics.IncDispatch(method.String(), "error")
		return nil, err
	}

	attempt := &models.PaymentAttempt{
		SessionID:        sessionID,
		Method:           method,
		AmountMinorUnits: money.ToMinorUnits(quote.Totals.FinalTotal),
		Currency:         g.currency,
	}
	if input.PayerPhone != "" {
		phone := input.PayerPhone
		attempt.PayerPhone = &phone
	}
	if err := g.ledger.RecordDispatch(ctx, attempt); err != nil {
		g.releaseTo(sess, enums.CheckoutStateMethodSelected)
		g.metrics.IncDispatch(method.String(), "error")
		return nil, err
	}

	logCtx := g.logger.WithPaymentMethod(g.logger.WithCartSession(ctx, sessionID), method.String())
	g.logger.Info(logCtx, "dispatching payment attempt")

	result, chargeErr := provider.Charge(ctx, payments.ChargeRequest{
		SessionID:  sessionID,
		Amount:     quote.Totals.FinalTotal,
		PayerPhone: input.PayerPhone,
		CardToken:  input.CardToken,
		Reference:  attempt.ID.String(),
	})

	g.mu.Lock()
	cancelled := sess.epoch != epoch
	sess.inFlight = false
	g.mu.Unlock()

	if cancelled {
		// the session was torn down mid-flight; record and hand off for
		// out-of-band reconciliation without touching the gate
		g.reconcileLateResult(logCtx, sessionID, attempt.ID, method, result, chargeErr)
		g.metrics.IncDispatch(method.String(), "orphaned")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session was cancelled")
	}

	if chargeErr != nil {
		g.mu.Lock()
		sess.state = enums.CheckoutStateFailed
		g.mu.Unlock()
		if err := g.ledger.MarkFailed(ctx, attempt.ID, chargeErr.Error()); err != nil {
			g.logger.Error(logCtx, "recording failed payment attempt", err)
		}
		g.metrics.IncDispatch(method.String(), "failed")
		g.logger.Error(logCtx, "payment dispatch failed", chargeErr)
		if typed := pkgerrors.As(chargeErr); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, chargeErr, "payment dispatch failed")
	}

	providerRef := ""
	if result != nil {
		providerRef = result.ProviderRef
	}
	if err := g.ledger.MarkSucceeded(ctx, attempt.ID, providerRef); err != nil {
		g.logger.Error(logCtx, "recording successful payment attempt", err)
	}
	if err := g.carts.Clear(ctx, sessionID); err != nil {
		g.logger.Error(logCtx, "clearing cart after payment", err)
	}

	g.mu.Lock()
	sess.state = enums.CheckoutStateCompleted
	g.mu.Unlock()

	g.metrics.IncDispatch(method.String(), "ok")
	g.logger.Info(logCtx, "payment dispatch confirmed")
	return g.summary(enums.CheckoutStateCompleted, method, quote, report), nil
}

// Cancel tears the session down to Idle without touching the cart. A payment
// attempt still in flight keeps running; its eventual result is marked
// orphaned and published for reconciliation instead of mutating the gate.
func (g *Gate) Cancel(ctx context.Context, sessionID string) error {
	sess := g.lookup(sessionID)

	g.mu.Lock()
	sess.epoch++
	sess.state = enums.CheckoutStateIdle
	sess.method = ""
	g.mu.Unlock()

	g.logger.Info(g.logger.WithCartSession(ctx, sessionID), "checkout session cancelled")
	return nil
}

// Invalidate drops the session back to ReviewingCart after a cart mutation.
// No-op while a payment is in flight or after completion.
func (g *Gate) Invalidate(sessionID string) {
	sess := g.lookup(sessionID)
	g.mu.Lock()
	if !sess.inFlight {
		switch sess.state {
		case enums.CheckoutStateSummaryPresented, enums.CheckoutStateMethodSelected, enums.CheckoutStateFailed:
			sess.state = enums.CheckoutStateReviewingCart
			sess.method = ""
		}
	}
	g.mu.Unlock()
}

// State reports the gate's view of the session with a fresh quote attached.
func (g *Gate) State(ctx context.Context, sessionID string) (*Summary, error) {
	quote, report, err := g.freshQuote(ctx, sessionID, "review")
	if err != nil {
		return nil, err
	}
	sess := g.lookup(sessionID)
	g.mu.Lock()
	state := sess.state
	method := sess.method
	g.mu.Unlock()
	return g.summary(state, method, quote, report), nil
}

func (g *Gate) freshQuote(ctx context.Context, sessionID, trigger string) (pricing.Quote, pricing.CapReport, error) {
	start := time.Now()

	entries, err := g.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return pricing.Quote{}, pricing.CapReport{}, err
	}
	snap, err := g.catalog.Snapshot(ctx)
	if err != nil {
		return pricing.Quote{}, pricing.CapReport{}, err
	}

	quote := pricing.Price(pricing.Resolve(entries, snap), g.deliveryFee)
	report := pricing.ValidateCaps(quote.Lines)

	g.metrics.ObserveQuoteDuration(trigger, time.Since(start))
	return quote, report, nil
}

func (g *Gate) summary(state enums.CheckoutState, method enums.PaymentMethod, quote pricing.Quote, report pricing.CapReport) *Summary {
	return &Summary{
		State:      state,
		Method:     method,
		Lines:      quote.Lines,
		Totals:     quote.Totals,
		Display:    quote.DisplayTotals(),
		Violations: report.Violations,
		Methods:    g.registry.Methods(),
	}
}

func (g *Gate) lookup(sessionID string) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[sessionID]
	if !ok {
		sess = &session{state: enums.CheckoutStateIdle}
		g.sessions[sessionID] = sess
	}
	return sess
}

func (g *Gate) releaseTo(sess *session, state enums.CheckoutState) {
	g.mu.Lock()
	sess.inFlight = false
	sess.state = state
	g.mu.Unlock()
}

func (g *Gate) reconcileLateResult(ctx context.Context, sessionID string, attemptID uuid.UUID, method enums.PaymentMethod, result *payments.ChargeResult, chargeErr error) {
	outcome := "succeeded"
	reason := "result arrived after checkout cancellation"
	providerRef := ""
	if chargeErr != nil {
		outcome = "failed"
		reason = chargeErr.Error()
	} else if result != nil {
		providerRef = result.ProviderRef
	}

	if err := g.ledger.MarkOrphaned(ctx, attemptID, reason); err != nil {
		g.logger.Error(ctx, "marking orphaned payment attempt", err)
	}
	if g.publisher == nil {
		g.logger.Warn(ctx, "late payment result dropped: no reconciliation publisher configured")
		return
	}
	event := pubsub.ReconciliationEvent{
		AttemptID:   attemptID.String(),
		SessionID:   sessionID,
		Method:      method.String(),
		Outcome:     outcome,
		ProviderRef: providerRef,
		Reason:      reason,
	}
	if err := g.publisher.PublishReconciliation(ctx, event); err != nil {
		g.logger.Error(ctx, "publishing reconciliation event", err)
	}
}

func capError(report pricing.CapReport) error {
	messages := make([]string, 0, len(report.Violations))
	for _, v := range report.Violations {
		messages = append(messages, v.Message())
	}
	err := pkgerrors.New(pkgerrors.CodeStateConflict, "one or more items exceed their purchase cap")
	return err.WithDetails(map[string]any{
		"violations": report.Violations,
		"messages":   messages,
	})
}
