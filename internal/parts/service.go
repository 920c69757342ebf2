package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/internal/repo"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

// Service manages the parts catalog.
type Service interface {
	Create(ctx context.Context, input CreatePartInput, actor string) (*PartDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PartDTO, error)
	List(ctx context.Context, input ListPartsInput) (*PartListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type activityWriter interface {
	Append(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.Activity, error)
}

type service struct {
	repo     *Repository
	writer   activityWriter
	dbClient db.TxRunner
}

// NewService builds the parts service.
func NewService(repo *Repository, writer activityWriter, dbClient db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("part repository required")
	}
	if writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, writer: writer, dbClient: dbClient}, nil
}

// Create stores the part and records a zero-quantity create_part activity so
// the part gets a balance row.
func (s *service) Create(ctx context.Context, input CreatePartInput, actor string) (*PartDTO, error) {
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	if name == "" || sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name and sku are required")
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
	}

	part := models.Part{
		ID:          uuid.New(),
		Name:        name,
		SKU:         sku,
		CategoryID:  input.CategoryID,
		Description: input.Description,
		UnitCost:    input.UnitCost,
		IsActive:    true,
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		category, err := txRepo.FindActiveCategory(ctx, input.CategoryID)
		if err != nil {
			return lookupError(err, "category not found")
		}
		if err := txRepo.Create(ctx, &part); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("sku %q already exists", sku))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
		}
		categoryName := category.Name
		notes := fmt.Sprintf("Part %q created", name)
		_, err = s.writer.Append(ctx, tx, ledger.Entry{
			EventType:    enums.ActivityCreatePart,
			PartID:       &part.ID,
			ActorName:    actor,
			Notes:        &notes,
			Tags:         []string{"part-created"},
			CategoryName: &categoryName,
		})
		if err != nil && pkgerrors.As(err) == nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append part activity")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, part.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PartDTO, error) {
	part, err := s.repo.FindActive(ctx, id)
	if err != nil {
		return nil, lookupError(err, "part not found")
	}
	dto := FromModel(*part)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListPartsInput) (*PartListResult, error) {
	page := input.Page.Normalize()
	rows, total, err := s.repo.ListPage(ctx, input.Filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}
	out := make([]PartDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return &PartListResult{Data: out, Pagination: page.Meta(total)}, nil
}

// Update edits catalog fields. Stock levels only move through the ledger.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name cannot be empty")
		}
		updates["name"] = name
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		updates["sku"] = sku
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.UnitCost != nil {
		if input.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		updates["unit_cost"] = *input.UnitCost
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if input.CategoryID != nil {
			if _, err := txRepo.FindActiveCategory(ctx, *input.CategoryID); err != nil {
				return lookupError(err, "category not found")
			}
			updates["category_id"] = *input.CategoryID
		}
		if err := txRepo.Update(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
			}
			return lookupError(err, "part not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.Deactivate[models.Part](ctx, tx, id); err != nil {
			return lookupError(err, "part not found")
		}
		return nil
	})
}

func lookupError(err error, notFoundMsg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
}
