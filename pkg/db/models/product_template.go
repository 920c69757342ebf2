package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductTemplate is a reusable recipe of part quantities.
type ProductTemplate struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Lines       []TemplatePart `gorm:"foreignKey:TemplateID"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductTemplate) TableName() string { return "product_templates" }

func (t *ProductTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TemplatePart is one (part, quantity) line of a template.
type TemplatePart struct {
	TemplateID uuid.UUID `gorm:"column:template_id;type:uuid;primaryKey"`
	PartID     uuid.UUID `gorm:"column:part_id;type:uuid;primaryKey"`
	Quantity   int       `gorm:"column:quantity;not null"`
	Part       *Part     `gorm:"foreignKey:PartID"`
}

func (TemplatePart) TableName() string { return "template_parts" }
