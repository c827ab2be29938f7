package repository

import (
	"context"

	"github.com/dropsource/storefront/models"
	"gorm.io/gorm"
)

// WebhookLogRepositoryImpl implements WebhookLogRepository
type WebhookLogRepositoryImpl struct {
	*BaseRepository[models.WebhookLog, models.WebhookLogFilter]
}

// NewWebhookLogRepository creates a new webhook log repository
func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepository {
	return &WebhookLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.WebhookLog, models.WebhookLogFilter](db),
	}
}

// Save appends a log row outside any caller transaction so a rollback never drops it
func (r *WebhookLogRepositoryImpl) Save(ctx context.Context, log *models.WebhookLog) error {
	return r.DB.WithContext(ctx).Create(log).Error
}

func (r *WebhookLogRepositoryImpl) ByFilter(ctx context.Context, filter models.WebhookLogFilter, orderBy string, limit, offset int) ([]*models.WebhookLog, error) {
	db := r.getDB(ctx)
	var logs []*models.WebhookLog
	q := paginate(r.applyFilter(db.Model(&models.WebhookLog{}), filter), orderBy, limit, offset)
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *WebhookLogRepositoryImpl) applyFilter(q *gorm.DB, f models.WebhookLogFilter) *gorm.DB {
	if f.Source != nil {
		q = q.Where("source = ?", *f.Source)
	}
	if f.Event != nil {
		q = q.Where("event = ?", *f.Event)
	}
	if f.DepositID != nil {
		q = q.Where("deposit_id = ?", *f.DepositID)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at > ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}
