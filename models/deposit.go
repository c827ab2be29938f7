package models

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepositMethod names the checkout provider that funds a deposit
type DepositMethod string

const (
	DepositMethodCoinbase DepositMethod = "coinbase"
	DepositMethodSquare   DepositMethod = "square"
)

// Valid reports whether the method is a known provider
func (m DepositMethod) Valid() bool {
	return m == DepositMethodCoinbase || m == DepositMethodSquare
}

// DepositStatus mirrors the deposits_status_check constraint
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusPaid      DepositStatus = "paid"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusCanceled  DepositStatus = "canceled"
	DepositStatusFailed    DepositStatus = "failed"
)

// SuccessDepositStatuses are the labels allowed as the configured terminal success value.
var SuccessDepositStatuses = []DepositStatus{DepositStatusPaid, DepositStatusConfirmed, DepositStatusCompleted}

// IsSuccess reports whether the status is one of the terminal success labels
func (s DepositStatus) IsSuccess() bool {
	return slices.Contains(SuccessDepositStatuses, s)
}

// IsTerminal reports whether no further transition is allowed
func (s DepositStatus) IsTerminal() bool {
	return s != DepositStatusPending
}

// Deposit is one attempt to fund a wallet through an external checkout.
type Deposit struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string          `gorm:"type:text;not null;index" json:"user_id"`
	Method          DepositMethod   `gorm:"type:varchar(20);not null" json:"method"`
	AmountCents     int64           `gorm:"not null" json:"amount_cents"`
	Status          DepositStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderID      *string         `gorm:"type:text;index" json:"provider_id,omitempty"`
	ProviderOrderID *string         `gorm:"type:text;index" json:"provider_order_id,omitempty"`
	ProviderPayload json.RawMessage `gorm:"type:jsonb" json:"provider_payload,omitempty"`
	CreditedAt      *time.Time      `json:"credited_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}

// BeforeCreate assigns the id used as the cross reference with the provider
func (d *Deposit) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DepositStatusPending
	}
	return nil
}

// DepositFilter represents filter criteria for deposit queries
type DepositFilter struct {
	ID            *uuid.UUID
	UserID        *string
	Method        *DepositMethod
	Status        *DepositStatus
	ProviderID    *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
