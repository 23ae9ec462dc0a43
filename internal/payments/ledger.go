package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukahq/storefront-backend/pkg/db"
	"github.com/dukahq/storefront-backend/pkg/db/models"
	"github.com/dukahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
)

// Ledger persists payment attempts. Every dispatch writes a row before the
// provider call, and late or out-of-band results update it afterwards.
type Ledger struct {
	client *db.Client
}

// NewLedger builds the attempts ledger.
func NewLedger(client *db.Client) (*Ledger, error) {
	if client == nil {
		return nil, errors.New("ledger requires a db client")
	}
	return &Ledger{client: client}, nil
}

// RecordDispatch inserts a new attempt in the dispatched state.
func (l *Ledger) RecordDispatch(ctx context.Context, attempt *models.PaymentAttempt) error {
	attempt.Status = enums.PaymentStatusDispatched
	if err := l.client.DB().WithContext(ctx).Create(attempt).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment attempt")
	}
	return nil
}

// MarkSucceeded finalizes an attempt after provider confirmation.
func (l *Ledger) MarkSucceeded(ctx context.Context, attemptID uuid.UUID, providerRef string) error {
	updates := map[string]any{
		"status":     enums.PaymentStatusSucceeded,
		"updated_at": time.Now(),
	}
	if providerRef != "" {
		updates["provider_ref"] = providerRef
	}
	return l.update(ctx, attemptID, updates)
}

// MarkFailed finalizes an attempt after a provider error or rejection.
func (l *Ledger) MarkFailed(ctx context.Context, attemptID uuid.UUID, reason string) error {
	return l.update(ctx, attemptID, map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
		"updated_at":     time.Now(),
	})
}

// MarkOrphaned records a result that arrived after its checkout session was
// cancelled or torn down; reconciliation happens out-of-band.
func (l *Ledger) MarkOrphaned(ctx context.Context, attemptID uuid.UUID, reason string) error {
	return l.update(ctx, attemptID, map[string]any{
		"status":         enums.PaymentStatusOrphaned,
		"failure_reason": reason,
		"updated_at":     time.Now(),
	})
}

// FindBySession lists a session's attempts, newest first.
func (l *Ledger) FindBySession(ctx context.Context, sessionID string) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := l.client.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payment attempts")
	}
	return attempts, nil
}

// FindByID fetches one attempt.
func (l *Ledger) FindByID(ctx context.Context, attemptID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := l.client.DB().WithContext(ctx).First(&attempt, "id = ?", attemptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment attempt")
	}
	return &attempt, nil
}

func (l *Ledger) update(ctx context.Context, attemptID uuid.UUID, updates map[string]any) error {
	result := l.client.DB().WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ?", attemptID).
		Updates(updates)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "updating payment attempt")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}
	return nil
}
