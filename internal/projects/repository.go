package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// Repository persists projects and their teams.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// FindActive loads an active project with its team.
func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Preload("Assignees.User").
		Where("id = ? AND is_active = ?", id, true).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindActiveWithProducts also loads products and their allocations.
func (r *Repository) FindActiveWithProducts(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Preload("Assignees.User").
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("products.created_at ASC")
		}).
		Preload("Products.Parts.Part").
		Where("id = ? AND is_active = ?", id, true).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListActive returns active projects, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Preload("Assignees.User").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
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

// ReplaceAssignees swaps the project team for userIDs.
func (r *Repository) ReplaceAssignees(ctx context.Context, projectID uuid.UUID, userIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.ProjectAssignee{}).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.ProjectAssignee, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.ProjectAssignee{ProjectID: projectID, UserID: id})
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error
}

// CountActiveUsers counts how many of ids are active users.
func (r *Repository) CountActiveUsers(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AppUser{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Count(&count).Error
	return count, err
}

// PartTotal is the quantity of one part allocated across a project's products.
type PartTotal struct {
	PartID   uuid.UUID           `gorm:"column:part_id"`
	PartName string              `gorm:"column:part_name"`
	SKU      string              `gorm:"column:sku"`
	UnitCost decimal.NullDecimal `gorm:"column:unit_cost"`
	Quantity int                 `gorm:"column:quantity"`
}

// PartTotals sums allocated quantities per part over the project's products.
func (r *Repository) PartTotals(ctx context.Context, projectID uuid.UUID) ([]PartTotal, error) {
	var out []PartTotal
	err := r.db.WithContext(ctx).
		Table("product_parts AS pp").
		Select("pp.part_id AS part_id, p.name AS part_name, p.sku AS sku, p.unit_cost AS unit_cost, SUM(pp.quantity) AS quantity").
		Joins("JOIN products pr ON pr.id = pp.product_id").
		Joins("JOIN parts p ON p.id = pp.part_id").
		Where("pr.project_id = ?", projectID).
		Group("pp.part_id, p.name, p.sku, p.unit_cost").
		Order("p.name ASC").
		Scan(&out).Error
	return out, err
}
