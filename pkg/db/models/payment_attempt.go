package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukahq/storefront-backend/pkg/enums"
)

// PaymentAttempt records one dispatch to a payment provider. The row is the
// audit trail used to reconcile results that arrive after the checkout
// session was torn down.
type PaymentAttempt struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID        string              `gorm:"column:session_id;not null;index"`
	Method           enums.PaymentMethod `gorm:"column:method;not null"`
	AmountMinorUnits int64               `gorm:"column:amount_minor_units;not null"`
	Currency         string              `gorm:"column:currency;not null"`
	PayerPhone       *string             `gorm:"column:payer_phone"`
	ProviderRef      *string             `gorm:"column:provider_ref"`
	Status           enums.PaymentStatus `gorm:"column:status;not null"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the ledger table name.
func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

// BeforeCreate assigns an id when the dialect has no uuid default (sqlite).
func (p *PaymentAttempt) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
