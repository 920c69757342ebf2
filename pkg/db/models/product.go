package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product belongs to exactly one project and owns its part allocations.
type Product struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID     `gorm:"column:project_id;type:uuid;not null"`
	Name      string        `gorm:"column:name;not null"`
	Parts     []ProductPart `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProductPart allocates Quantity units of a part to a product. Quantity is
// always positive; a zero target is a deleted row.
type ProductPart struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	PartID    uuid.UUID `gorm:"column:part_id;type:uuid;primaryKey"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Part      *Part     `gorm:"foreignKey:PartID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductPart) TableName() string { return "product_parts" }
