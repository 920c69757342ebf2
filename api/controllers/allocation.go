package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/internal/allocation"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// AllocationEngine is the product and allocation surface the HTTP layer needs.
type AllocationEngine interface {
	AddPart(ctx context.Context, productID, partID uuid.UUID, quantity int, actor string) (*allocation.ProductPartDTO, error)
	UpdatePart(ctx context.Context, productID, partID uuid.UUID, newQuantity int, actor string) (*allocation.ProductPartDTO, error)
	RemovePart(ctx context.Context, productID, partID uuid.UUID, actor string) error
	DeleteProduct(ctx context.Context, productID uuid.UUID, actor string) (*allocation.DeleteProductResult, error)
	ApplyTemplate(ctx context.Context, projectID, templateID uuid.UUID, overrideName string, actor string) (*allocation.ProductDTO, error)
	CreateProduct(ctx context.Context, projectID uuid.UUID, name string, actor string) (*allocation.ProductDTO, error)
	RenameProduct(ctx context.Context, productID uuid.UUID, name string) (*allocation.ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*allocation.ProductDTO, error)
	ListProjectProducts(ctx context.Context, projectID uuid.UUID) ([]allocation.ProductDTO, error)
	ChangeProjectStatus(ctx context.Context, projectID uuid.UUID, status enums.ProjectStatus, dispatch *allocation.DispatchDetails, actor string) (*allocation.ProjectStatusDTO, error)
}
