package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.AppUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindActiveByID loads an active user by their UUID.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.AppUser, error) {
	var user models.AppUser
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActive returns active users ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.AppUser, error) {
	var out []models.AppUser
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// Rename updates the user's display name.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).
		Model(&models.AppUser{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
