package parts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

// Repository persists parts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListFilter narrows the part listing.
type ListFilter struct {
	CategoryID *uuid.UUID
	Query      string
}

func (r *Repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(part).Error
}

// FindActive loads an active part with its category and balance.
func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Balance").
		Where("id = ? AND is_active = ?", id, true).
		First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// FindActiveCategory loads an active category.
func (r *Repository) FindActiveCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Part{}).Where("parts.is_active = ?", true)
	if filter.CategoryID != nil {
		query = query.Where("parts.category_id = ?", *filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(parts.name) LIKE ? OR LOWER(parts.sku) LIKE ?", like, like)
	}
	return query
}

// ListPage returns active parts ordered by name with their balances.
func (r *Repository) ListPage(ctx context.Context, filter ListFilter, page pagination.PageParams) ([]models.Part, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	var rows []models.Part
	if err := r.filtered(ctx, filter).
		Preload("Category").
		Preload("Balance").
		Order("parts.name ASC").
		Order("parts.id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update applies column updates to an active part.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
