package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/internal/repo"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

// Service manages product templates.
type Service interface {
	Create(ctx context.Context, input CreateTemplateInput) (*TemplateDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*TemplateDTO, error)
	List(ctx context.Context) ([]TemplateDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTemplateInput) (*TemplateDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CheckAvailability(ctx context.Context, id uuid.UUID) (*AvailabilityDTO, error)
}

type availabilityChecker interface {
	Check(ctx context.Context, tx *gorm.DB, reqs []inventory.Requirement) (inventory.Report, error)
}

type service struct {
	repo     *Repository
	checker  availabilityChecker
	dbClient db.TxRunner
}

// NewService builds the template service.
func NewService(repo *Repository, checker availabilityChecker, dbClient db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository required")
	}
	if checker == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, checker: checker, dbClient: dbClient}, nil
}

func (s *service) Create(ctx context.Context, input CreateTemplateInput) (*TemplateDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name is required")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	template := models.ProductTemplate{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		IsActive:    true,
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureParts(ctx, txRepo, input.Lines); err != nil {
			return err
		}
		if err := txRepo.Create(ctx, &template); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create template")
		}
		if err := txRepo.ReplaceLines(ctx, template.ID, toLines(template.ID, input.Lines)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert template lines")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, template.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*TemplateDTO, error) {
	template, err := s.repo.FindActiveWithLines(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(*template)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]TemplateDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	out := make([]TemplateDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTemplateInput) (*TemplateDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Lines != nil {
		if err := validateLines(*input.Lines); err != nil {
			return nil, err
		}
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Update(ctx, id, updates); err != nil {
			return lookupError(err)
		}
		if input.Lines == nil {
			return nil
		}
		if err := ensureParts(ctx, txRepo, *input.Lines); err != nil {
			return err
		}
		if err := txRepo.ReplaceLines(ctx, id, toLines(id, *input.Lines)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace template lines")
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
		if err := repo.Deactivate[models.ProductTemplate](ctx, tx, id); err != nil {
			return lookupError(err)
		}
		return nil
	})
}

// CheckAvailability reports every line the current stock cannot cover.
func (s *service) CheckAvailability(ctx context.Context, id uuid.UUID) (*AvailabilityDTO, error) {
	template, err := s.repo.FindActiveWithLines(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	reqs := make([]inventory.Requirement, 0, len(template.Lines))
	for _, line := range template.Lines {
		req := inventory.Requirement{PartID: line.PartID, Quantity: line.Quantity}
		if line.Part != nil {
			req.PartName = line.Part.Name
		}
		reqs = append(reqs, req)
	}
	report, err := s.checker.Check(ctx, nil, reqs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check availability")
	}
	shortages := report.Shortages
	if shortages == nil {
		shortages = []inventory.Shortage{}
	}
	return &AvailabilityDTO{CanCreate: report.CanFulfill, Shortages: shortages}, nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "template requires at least one part")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for i, line := range lines {
		if line.PartID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: part id is required", i))
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity, fmt.Sprintf("line %d: quantity must be greater than 0", i))
		}
		if _, dup := seen[line.PartID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: part %s is listed twice", i, line.PartID))
		}
		seen[line.PartID] = struct{}{}
	}
	return nil
}

func ensureParts(ctx context.Context, r *Repository, lines []LineInput) error {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.PartID)
	}
	count, err := r.CountActiveParts(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parts")
	}
	if int(count) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "one or more template parts were not found")
	}
	return nil
}

func toLines(templateID uuid.UUID, lines []LineInput) []models.TemplatePart {
	out := make([]models.TemplatePart, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.TemplatePart{TemplateID: templateID, PartID: line.PartID, Quantity: line.Quantity})
	}
	return out
}

func lookupError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product template not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
}
