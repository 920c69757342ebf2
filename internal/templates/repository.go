package templates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// Repository persists product templates and their lines.
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

func (r *Repository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("template_parts.part_id ASC")
		}).
		Preload("Lines.Part.Category")
}

// FindActiveWithLines loads an active template with its lines, parts and categories.
func (r *Repository) FindActiveWithLines(ctx context.Context, id uuid.UUID) (*models.ProductTemplate, error) {
	var template models.ProductTemplate
	if err := r.withLines(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// ListActive returns active templates ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.ProductTemplate, error) {
	var out []models.ProductTemplate
	err := r.withLines(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *Repository) Create(ctx context.Context, template *models.ProductTemplate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(template).Error
}

// Update applies column updates to an active template.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.ProductTemplate{}).
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

// ReplaceLines deletes every line of the template and inserts lines.
func (r *Repository) ReplaceLines(ctx context.Context, templateID uuid.UUID, lines []models.TemplatePart) error {
	if err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Delete(&models.TemplatePart{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&lines).Error
}

// CountActiveParts counts how many of ids reference active parts.
func (r *Repository) CountActiveParts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Count(&count).Error
	return count, err
}
