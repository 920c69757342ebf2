package templates

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// LineInput is one requested (part, quantity) template line.
type LineInput struct {
	PartID   uuid.UUID
	Quantity int
}

type CreateTemplateInput struct {
	Name        string
	Description *string
	Lines       []LineInput
}

// UpdateTemplateInput changes only the provided fields. Lines, when set,
// replace every existing line.
type UpdateTemplateInput struct {
	Name        *string
	Description *string
	Lines       *[]LineInput
}

type LineDTO struct {
	PartID   uuid.UUID `json:"partId"`
	PartName string    `json:"partName,omitempty"`
	SKU      string    `json:"sku,omitempty"`
	Quantity int       `json:"quantity"`
}

type TemplateDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Lines       []LineDTO `json:"lines"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AvailabilityDTO tells whether a product could be created from the template now.
type AvailabilityDTO struct {
	CanCreate bool                 `json:"canCreate"`
	Shortages []inventory.Shortage `json:"shortages"`
}

func lineFromModel(line models.TemplatePart) LineDTO {
	dto := LineDTO{PartID: line.PartID, Quantity: line.Quantity}
	if line.Part != nil {
		dto.PartName = line.Part.Name
		dto.SKU = line.Part.SKU
	}
	return dto
}

// FromModel maps a template and its loaded lines.
func FromModel(t models.ProductTemplate) TemplateDTO {
	lines := make([]LineDTO, 0, len(t.Lines))
	for _, line := range t.Lines {
		lines = append(lines, lineFromModel(line))
	}
	return TemplateDTO{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Lines:       lines,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
