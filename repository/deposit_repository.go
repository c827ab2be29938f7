package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepositRepositoryImpl implements DepositRepository
type DepositRepositoryImpl struct {
	*BaseRepository[models.Deposit, models.DepositFilter]
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *gorm.DB) DepositRepository {
	return &DepositRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Deposit, models.DepositFilter](db),
	}
}

func (r *DepositRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	db := r.getDB(ctx)
	var dep models.Deposit
	if err := db.Where("id = ?", id).First(&dep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dep, nil
}

func (r *DepositRepositoryImpl) ByProviderRefs(ctx context.Context, method models.DepositMethod, refs []string) (*models.Deposit, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	var dep models.Deposit
	err := db.Where("method = ?", method).
		Where("provider_id IN ? OR provider_order_id IN ?", refs, refs).
		Order("created_at DESC").
		First(&dep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dep, nil
}

func (r *DepositRepositoryImpl) SetProviderRefs(ctx context.Context, id uuid.UUID, providerID string, providerOrderID *string) error {
	db := r.getDB(ctx)
	updates := map[string]any{
		"provider_id": providerID,
		"updated_at":  utils.UTCNow(),
	}
	if providerOrderID != nil {
		updates["provider_order_id"] = *providerOrderID
	}
	if err := db.Model(&models.Deposit{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to set provider refs on deposit %s: %w", id, err)
	}
	return nil
}

func (r *DepositRepositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	db := r.getDB(ctx)
	updates := map[string]any{
		"status":     models.DepositStatusFailed,
		"updated_at": utils.UTCNow(),
	}
	if len(payload) > 0 {
		updates["provider_payload"] = string(payload)
	}
	err := db.Model(&models.Deposit{}).
		Where("id = ? AND status = ?", id, models.DepositStatusPending).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to mark deposit %s failed: %w", id, err)
	}
	return nil
}

// TransitionFromPending is a conditional update; concurrent callers race on the
// status predicate and exactly one of them sees a changed row.
func (r *DepositRepositoryImpl) TransitionFromPending(ctx context.Context, id uuid.UUID, status models.DepositStatus, payload json.RawMessage, at time.Time) (bool, error) {
	db := r.getDB(ctx)
	updates := map[string]any{
		"status":     status,
		"updated_at": at,
	}
	if status.IsSuccess() {
		updates["credited_at"] = at
	}
	if len(payload) > 0 && json.Valid(payload) {
		updates["provider_payload"] = string(payload)
	}
	res := db.Model(&models.Deposit{}).
		Where("id = ? AND status = ?", id, models.DepositStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition deposit %s to %s: %w", id, status, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DepositRepositoryImpl) ByFilter(ctx context.Context, filter models.DepositFilter, orderBy string, limit, offset int) ([]*models.Deposit, error) {
	db := r.getDB(ctx)
	var deps []*models.Deposit
	q := paginate(r.applyFilter(db.Model(&models.Deposit{}), filter), orderBy, limit, offset)
	if err := q.Find(&deps).Error; err != nil {
		return nil, err
	}
	return deps, nil
}

func (r *DepositRepositoryImpl) Count(ctx context.Context, filter models.DepositFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Deposit{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DepositRepositoryImpl) applyFilter(q *gorm.DB, f models.DepositFilter) *gorm.DB {
	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Method != nil {
		q = q.Where("method = ?", *f.Method)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.ProviderID != nil {
		q = q.Where("provider_id = ?", *f.ProviderID)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at > ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}
