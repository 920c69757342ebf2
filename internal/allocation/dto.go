package allocation

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// ProductPartDTO is one allocation line of a product.
type ProductPartDTO struct {
	ProductID uuid.UUID `json:"productId"`
	PartID    uuid.UUID `json:"partId"`
	PartName  string    `json:"partName,omitempty"`
	SKU       string    `json:"sku,omitempty"`
	Quantity  int       `json:"quantity"`
}

// ProductDTO is a product with its allocations.
type ProductDTO struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"projectId"`
	Name      string           `json:"name"`
	Parts     []ProductPartDTO `json:"parts"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// DeleteProductResult lists what a cascading product delete returned to stock.
type DeleteProductResult struct {
	ProductID uuid.UUID        `json:"productId"`
	Returned  []ProductPartDTO `json:"returned"`
}

// DispatchDetails is recorded when a project is dispatched.
type DispatchDetails struct {
	DispatchDatetime     *time.Time
	DispatchFromLocation *string
	DispatchToLocation   *string
	ReceivingPersonName  *string
}

// ProjectStatusDTO is the project state after a status change.
type ProjectStatusDTO struct {
	ID                   uuid.UUID           `json:"id"`
	Name                 string              `json:"name"`
	Status               enums.ProjectStatus `json:"status"`
	DispatchedAt         *time.Time          `json:"dispatchedAt,omitempty"`
	DispatchDatetime     *time.Time          `json:"dispatchDatetime,omitempty"`
	DispatchFromLocation *string             `json:"dispatchFromLocation,omitempty"`
	DispatchToLocation   *string             `json:"dispatchToLocation,omitempty"`
	ReceivingPersonName  *string             `json:"receivingPersonName,omitempty"`
	CancelledAt          *time.Time          `json:"cancelledAt,omitempty"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

func productPartFromModel(pp models.ProductPart) ProductPartDTO {
	dto := ProductPartDTO{
		ProductID: pp.ProductID,
		PartID:    pp.PartID,
		Quantity:  pp.Quantity,
	}
	if pp.Part != nil {
		dto.PartName = pp.Part.Name
		dto.SKU = pp.Part.SKU
	}
	return dto
}

// ProductFromModel maps a product and any loaded links into its DTO.
func ProductFromModel(p models.Product) ProductDTO {
	parts := make([]ProductPartDTO, 0, len(p.Parts))
	for _, pp := range p.Parts {
		parts = append(parts, productPartFromModel(pp))
	}
	return ProductDTO{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Name:      p.Name,
		Parts:     parts,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func projectStatusFromModel(p models.Project) ProjectStatusDTO {
	return ProjectStatusDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Status:               p.Status,
		DispatchedAt:         p.DispatchedAt,
		DispatchDatetime:     p.DispatchDatetime,
		DispatchFromLocation: p.DispatchFromLocation,
		DispatchToLocation:   p.DispatchToLocation,
		ReceivingPersonName:  p.ReceivingPersonName,
		CancelledAt:          p.CancelledAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
