package parts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

type CreatePartInput struct {
	Name        string
	SKU         string
	CategoryID  uuid.UUID
	Description *string
	UnitCost    *decimal.Decimal
}

// UpdatePartInput changes only the provided fields.
type UpdatePartInput struct {
	Name        *string
	SKU         *string
	CategoryID  *uuid.UUID
	Description *string
	UnitCost    *decimal.Decimal
}

type ListPartsInput struct {
	Filter ListFilter
	Page   pagination.PageParams
}

type PartDTO struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	SKU          string           `json:"sku"`
	CategoryID   uuid.UUID        `json:"categoryId"`
	CategoryName string           `json:"categoryName,omitempty"`
	Description  *string          `json:"description,omitempty"`
	UnitCost     *decimal.Decimal `json:"unitCost,omitempty"`
	Available    int              `json:"available"`
	TotalIn      int              `json:"totalIn"`
	TotalOut     int              `json:"totalOut"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type PartListResult struct {
	Data       []PartDTO           `json:"data"`
	Pagination pagination.PageMeta `json:"pagination"`
}

// FromModel maps a part with its optional category and balance.
func FromModel(p models.Part) PartDTO {
	dto := PartDTO{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		UnitCost:    p.UnitCost,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Category != nil {
		dto.CategoryName = p.Category.Name
	}
	if p.Balance != nil {
		dto.Available = p.Balance.Available
		dto.TotalIn = p.Balance.TotalIn
		dto.TotalOut = p.Balance.TotalOut
	}
	return dto
}
