package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a stock-keeping unit tracked by the ledger.
type Part struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	SKU         string            `gorm:"column:sku;not null;uniqueIndex:ux_parts_sku"`
	CategoryID  uuid.UUID         `gorm:"column:category_id;type:uuid;not null"`
	Description *string           `gorm:"column:description"`
	UnitCost    *decimal.Decimal  `gorm:"column:unit_cost;type:numeric(12,2)"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	Category    *Category         `gorm:"foreignKey:CategoryID"`
	Balance     *InventoryBalance `gorm:"foreignKey:PartID;references:ID"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Part) TableName() string { return "parts" }

func (p *Part) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
