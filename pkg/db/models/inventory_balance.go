package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryBalance is derived from the activity ledger. Only the balance
// projector writes it.
type InventoryBalance struct {
	PartID    uuid.UUID `gorm:"column:part_id;type:uuid;primaryKey"`
	Available int       `gorm:"column:available;not null;default:0"`
	TotalIn   int       `gorm:"column:total_in;not null;default:0"`
	TotalOut  int       `gorm:"column:total_out;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryBalance) TableName() string { return "inventory_balances" }
