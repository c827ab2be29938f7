package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepositoryImpl implements WalletRepository interface
type WalletRepositoryImpl struct {
	*BaseRepository[models.Wallet, models.WalletFilter]
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &WalletRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Wallet, models.WalletFilter](db),
	}
}

// ByUserID finds a wallet by user ID
func (r *WalletRepositoryImpl) ByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Where("user_id = ?", userID).Last(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// CreateIfAbsent inserts a zero-balance wallet unless one exists for the user
func (r *WalletRepositoryImpl) CreateIfAbsent(ctx context.Context, userID string) error {
	db := r.getDB(ctx)
	wallet := &models.Wallet{UserID: userID, BalanceCents: 0, Currency: utils.USDCurrency}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(wallet).Error
	if err != nil {
		return fmt.Errorf("failed to create wallet for %s: %w", userID, err)
	}
	return nil
}

type balanceRow struct {
	BalanceCents int64
}

// Credit atomically adds amountCents to the user's balance
func (r *WalletRepositoryImpl) Credit(ctx context.Context, userID string, amountCents int64) (int64, error) {
	db := r.getDB(ctx)
	var row balanceRow
	res := db.Raw(
		"UPDATE wallets SET balance_cents = balance_cents + ?, updated_at = ? WHERE user_id = ? RETURNING balance_cents",
		amountCents, utils.UTCNow(), userID,
	).Scan(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to credit wallet %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("failed to credit wallet %s: %w", userID, gorm.ErrRecordNotFound)
	}
	return row.BalanceCents, nil
}

// Debit subtracts amountCents only when the balance covers it
func (r *WalletRepositoryImpl) Debit(ctx context.Context, userID string, amountCents int64) (int64, bool, error) {
	db := r.getDB(ctx)
	var row balanceRow
	res := db.Raw(
		"UPDATE wallets SET balance_cents = balance_cents - ?, updated_at = ? WHERE user_id = ? AND balance_cents >= ? RETURNING balance_cents",
		amountCents, utils.UTCNow(), userID, amountCents,
	).Scan(&row)
	if res.Error != nil {
		return 0, false, fmt.Errorf("failed to debit wallet %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return row.BalanceCents, true, nil
}

// ByFilter retrieves wallets based on filter criteria
func (r *WalletRepositoryImpl) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallets []*models.Wallet
	q := paginate(r.applyFilter(db.Model(&models.Wallet{}), filter), orderBy, limit, offset)
	if err := q.Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

// Count returns the number of wallets matching the filter
func (r *WalletRepositoryImpl) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Wallet{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WalletRepositoryImpl) applyFilter(q *gorm.DB, f models.WalletFilter) *gorm.DB {
	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		q = q.Where("uuid = ?", *f.UUID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at > ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}
