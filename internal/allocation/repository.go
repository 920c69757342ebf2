package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// Repository persists products and their part allocations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindActiveProject loads a project that has not been deactivated.
func (r *Repository) FindActiveProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject writes the given columns on the project row.
func (r *Repository) UpdateProject(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindProduct loads the product without associations.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductWithParts loads the product, its links and each linked part.
func (r *Repository) FindProductWithParts(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("part_id ASC") }).
		Preload("Parts.Part").
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProductsByProject returns the project's products with their links.
func (r *Repository) ListProductsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("part_id ASC") }).
		Preload("Parts.Part").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *Repository) RenameProduct(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
		"name":       name,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct physically removes the product row. Only the cascading
// return path calls it.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// FindProductPart loads one allocation link.
func (r *Repository) FindProductPart(ctx context.Context, productID, partID uuid.UUID) (*models.ProductPart, error) {
	var link models.ProductPart
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND part_id = ?", productID, partID).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ListProductParts returns every allocation link of the product with its part
// and category.
func (r *Repository) ListProductParts(ctx context.Context, productID uuid.UUID) ([]models.ProductPart, error) {
	var links []models.ProductPart
	err := r.db.WithContext(ctx).
		Preload("Part.Category").
		Where("product_id = ?", productID).
		Order("part_id ASC").
		Find(&links).Error
	return links, err
}

func (r *Repository) InsertProductParts(ctx context.Context, links []models.ProductPart) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&links).Error
}

func (r *Repository) UpdateProductPartQuantity(ctx context.Context, productID, partID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductPart{}).
		Where("product_id = ? AND part_id = ?", productID, partID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) DeleteProductPart(ctx context.Context, productID, partID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND part_id = ?", productID, partID).
		Delete(&models.ProductPart{}).Error
}

func (r *Repository) DeleteProductParts(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.ProductPart{}).Error
}

// FindPart loads the part with its category.
func (r *Repository) FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).Preload("Category").First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}
