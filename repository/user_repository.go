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

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	*BaseRepository[models.User, struct{}]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, struct{}](db),
	}
}

func (r *UserRepositoryImpl) ByID(ctx context.Context, id string) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Upsert(ctx context.Context, user *models.User) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	user.CreatedAt = now
	user.UpdatedAt = now
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"email":      gorm.Expr("COALESCE(EXCLUDED.email, users.email)"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}
