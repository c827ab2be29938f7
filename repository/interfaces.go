// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropsource/storefront/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// TxManager runs fn in a single database transaction, joining an outer one when present
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// UserRepository defines operations for users
type UserRepository interface {
	ByID(ctx context.Context, id string) (*models.User, error)
	// Upsert inserts the user or refreshes its email; a nil email keeps the stored one.
	Upsert(ctx context.Context, user *models.User) error
}

// WalletRepository defines operations for wallets
type WalletRepository interface {
	ByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error)
	Count(ctx context.Context, filter models.WalletFilter) (int64, error)
	Save(ctx context.Context, wallet *models.Wallet) error
	// CreateIfAbsent inserts a zero-balance wallet and ignores a conflicting row.
	CreateIfAbsent(ctx context.Context, userID string) error
	// Credit adds amount to the balance and returns the new balance.
	Credit(ctx context.Context, userID string, amountCents int64) (int64, error)
	// Debit subtracts amount only when the balance covers it. ok is false when it does not.
	Debit(ctx context.Context, userID string, amountCents int64) (newBalance int64, ok bool, err error)
}

// DepositRepository defines operations for deposits
type DepositRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	// ByProviderRefs returns the newest deposit of method whose provider_id or provider_order_id is in refs.
	ByProviderRefs(ctx context.Context, method models.DepositMethod, refs []string) (*models.Deposit, error)
	ByFilter(ctx context.Context, filter models.DepositFilter, orderBy string, limit, offset int) ([]*models.Deposit, error)
	Count(ctx context.Context, filter models.DepositFilter) (int64, error)
	Save(ctx context.Context, deposit *models.Deposit) error
	SetProviderRefs(ctx context.Context, id uuid.UUID, providerID string, providerOrderID *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, payload json.RawMessage) error
	// TransitionFromPending moves a pending deposit to status and reports whether this call did it.
	TransitionFromPending(ctx context.Context, id uuid.UUID, status models.DepositStatus, payload json.RawMessage, at time.Time) (bool, error)
}

// WebhookLogRepository defines operations for webhook logs
type WebhookLogRepository interface {
	Save(ctx context.Context, log *models.WebhookLog) error
	ByFilter(ctx context.Context, filter models.WebhookLogFilter, orderBy string, limit, offset int) ([]*models.WebhookLog, error)
}

// OrderRepository defines operations for orders
type OrderRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ByFilter(ctx context.Context, filter models.OrderFilter, orderBy string, limit, offset int) ([]*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
}
