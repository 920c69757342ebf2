package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// SeedCategory inserts an active category.
func SeedCategory(t testing.TB, conn *gorm.DB, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name, IsActive: true}
	if err := conn.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

// SeedPart inserts an active part in the given category with a unique SKU.
func SeedPart(t testing.TB, conn *gorm.DB, categoryID uuid.UUID, name string) models.Part {
	t.Helper()
	part := models.Part{
		Name:       name,
		SKU:        "SKU-" + uuid.NewString()[:8],
		CategoryID: categoryID,
		IsActive:   true,
	}
	if err := conn.Omit(clause.Associations).Create(&part).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
	return part
}

// SeedProject inserts an in-progress project.
func SeedProject(t testing.TB, conn *gorm.DB, name string) models.Project {
	t.Helper()
	project := models.Project{Name: name, Status: enums.ProjectStatusInProgress, IsActive: true}
	if err := conn.Omit(clause.Associations).Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

// SeedProduct inserts a product under the project.
func SeedProduct(t testing.TB, conn *gorm.DB, projectID uuid.UUID, name string) models.Product {
	t.Helper()
	product := models.Product{ProjectID: projectID, Name: name}
	if err := conn.Omit(clause.Associations).Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}
