package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

// PartRefDTO is the part summary embedded in activity listings.
type PartRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	SKU  string    `json:"sku"`
}

// ActivityDTO is the API shape of a ledger row.
type ActivityDTO struct {
	ID               uuid.UUID               `json:"id"`
	EventType        enums.ActivityEventType `json:"eventType"`
	PartID           *uuid.UUID              `json:"partId,omitempty"`
	Part             *PartRefDTO             `json:"part,omitempty"`
	Qty              int                     `json:"qty"`
	ActorName        string                  `json:"actorName"`
	CounterpartyName *string                 `json:"counterpartyName,omitempty"`
	Purpose          *string                 `json:"purpose,omitempty"`
	Project          *string                 `json:"project,omitempty"`
	ProjectID        *uuid.UUID              `json:"projectId,omitempty"`
	ProductID        *uuid.UUID              `json:"productId,omitempty"`
	Notes            *string                 `json:"notes,omitempty"`
	InvoiceNumber    *string                 `json:"invoiceNumber,omitempty"`
	InvoiceDate      *time.Time              `json:"invoiceDate,omitempty"`
	Timestamp        *time.Time              `json:"timestamp,omitempty"`
	Tags             []string                `json:"tags"`
	CategoryName     *string                 `json:"categoryName,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// ActivityListResult is an offset page of activities.
type ActivityListResult struct {
	Data       []ActivityDTO        `json:"data"`
	Pagination *pagination.PageMeta `json:"pagination,omitempty"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// FromModel maps an activity row into its DTO.
func FromModel(a models.Activity) ActivityDTO {
	tags := []string(a.Tags)
	if tags == nil {
		tags = []string{}
	}
	dto := ActivityDTO{
		ID:               a.ID,
		EventType:        a.EventType,
		PartID:           a.PartID,
		Qty:              a.Qty,
		ActorName:        a.ActorName,
		CounterpartyName: a.CounterpartyName,
		Purpose:          a.Purpose,
		Project:          a.Project,
		ProjectID:        a.ProjectID,
		ProductID:        a.ProductID,
		Notes:            a.Notes,
		InvoiceNumber:    a.InvoiceNumber,
		InvoiceDate:      a.InvoiceDate,
		Timestamp:        a.Timestamp,
		Tags:             tags,
		CategoryName:     a.CategoryName,
		CreatedAt:        a.CreatedAt,
	}
	if a.Part != nil {
		dto.Part = &PartRefDTO{ID: a.Part.ID, Name: a.Part.Name, SKU: a.Part.SKU}
	}
	return dto
}
