package projects

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partstrack-backend/internal/allocation"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

type CreateProjectInput struct {
	Name        string
	Description *string
	AssigneeIDs []uuid.UUID
}

// UpdateProjectInput changes only the provided fields.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

type AssigneeDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ProjectDTO struct {
	ID                   uuid.UUID               `json:"id"`
	Name                 string                  `json:"name"`
	Description          *string                 `json:"description,omitempty"`
	Status               enums.ProjectStatus     `json:"status"`
	DispatchedAt         *time.Time              `json:"dispatchedAt,omitempty"`
	DispatchDatetime     *time.Time              `json:"dispatchDatetime,omitempty"`
	DispatchFromLocation *string                 `json:"dispatchFromLocation,omitempty"`
	DispatchToLocation   *string                 `json:"dispatchToLocation,omitempty"`
	ReceivingPersonName  *string                 `json:"receivingPersonName,omitempty"`
	CancelledAt          *time.Time              `json:"cancelledAt,omitempty"`
	Team                 []AssigneeDTO           `json:"team"`
	Products             []allocation.ProductDTO `json:"products,omitempty"`
	CreatedAt            time.Time               `json:"createdAt"`
	UpdatedAt            time.Time               `json:"updatedAt"`
}

type PartSummaryLine struct {
	PartID   uuid.UUID        `json:"partId"`
	PartName string           `json:"partName"`
	SKU      string           `json:"sku"`
	Quantity int              `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unitCost,omitempty"`
	LineCost decimal.Decimal  `json:"lineCost"`
}

// PartSummaryDTO totals what a project has allocated. Parts without a unit
// cost contribute nothing to TotalCost.
type PartSummaryDTO struct {
	ProjectID uuid.UUID         `json:"projectId"`
	Parts     []PartSummaryLine `json:"parts"`
	TotalCost decimal.Decimal   `json:"totalCost"`
}

// FromModel maps a project with whatever associations were loaded.
func FromModel(p models.Project) ProjectDTO {
	team := make([]AssigneeDTO, 0, len(p.Assignees))
	for _, a := range p.Assignees {
		member := AssigneeDTO{ID: a.UserID}
		if a.User != nil {
			member.Name = a.User.Name
		}
		team = append(team, member)
	}
	var products []allocation.ProductDTO
	if len(p.Products) > 0 {
		products = make([]allocation.ProductDTO, 0, len(p.Products))
		for _, product := range p.Products {
			products = append(products, allocation.ProductFromModel(product))
		}
	}
	return ProjectDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		Status:               p.Status,
		DispatchedAt:         p.DispatchedAt,
		DispatchDatetime:     p.DispatchDatetime,
		DispatchFromLocation: p.DispatchFromLocation,
		DispatchToLocation:   p.DispatchToLocation,
		ReceivingPersonName:  p.ReceivingPersonName,
		CancelledAt:          p.CancelledAt,
		Team:                 team,
		Products:             products,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
