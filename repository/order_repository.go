package repository

import (
	"context"
	"errors"

	"github.com/dropsource/storefront/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepositoryImpl implements OrderRepository
type OrderRepositoryImpl struct {
	*BaseRepository[models.Order, models.OrderFilter]
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Order, models.OrderFilter](db),
	}
}

func (r *OrderRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	db := r.getDB(ctx)
	var order models.Order
	if err := db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) ByFilter(ctx context.Context, filter models.OrderFilter, orderBy string, limit, offset int) ([]*models.Order, error) {
	db := r.getDB(ctx)
	var orders []*models.Order
	q := paginate(r.applyFilter(db.Model(&models.Order{}), filter), orderBy, limit, offset)
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepositoryImpl) applyFilter(q *gorm.DB, f models.OrderFilter) *gorm.DB {
	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.ProviderOrderID != nil {
		q = q.Where("provider_order_id = ?", *f.ProviderOrderID)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at > ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}
