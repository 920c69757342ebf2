package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/internal/repo"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

// Service manages projects and their teams. Status changes go through the
// allocation engine.
type Service interface {
	Create(ctx context.Context, input CreateProjectInput, actor string) (*ProjectDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProjectDTO, error)
	List(ctx context.Context) ([]ProjectDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*ProjectDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceTeam(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID, actor string) (*ProjectDTO, error)
	PartSummary(ctx context.Context, id uuid.UUID) (*PartSummaryDTO, error)
}

type activityWriter interface {
	Append(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.Activity, error)
}

type service struct {
	repo     *Repository
	writer   activityWriter
	dbClient db.TxRunner
	logg     *logger.Logger
}

// NewService constructs the project service.
func NewService(repo *Repository, writer activityWriter, dbClient db.TxRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, writer: writer, dbClient: dbClient, logg: logg}, nil
}

// Create stores the project with its initial team and records project-created.
func (s *service) Create(ctx context.Context, input CreateProjectInput, actor string) (*ProjectDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name is required")
	}
	userIDs := dedupe(input.AssigneeIDs)

	project := models.Project{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		Status:      enums.ProjectStatusInProgress,
		IsActive:    true,
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureUsers(ctx, txRepo, userIDs); err != nil {
			return err
		}
		if err := txRepo.Create(ctx, &project); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
		}
		if err := txRepo.ReplaceAssignees(ctx, project.ID, userIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign team")
		}
		return s.audit(ctx, tx, ledger.Entry{
			EventType: enums.ActivityProjectCreated,
			ActorName: actor,
			Project:   &project.Name,
			ProjectID: &project.ID,
			Notes:     strPtr(fmt.Sprintf("Project %q created", project.Name)),
			Tags:      []string{"project", "created"},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithProjectID(ctx, project.ID.String()), "project created")
	}
	return s.Get(ctx, project.ID)
}

// Get returns the project with its products and team.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProjectDTO, error) {
	project, err := s.repo.FindActiveWithProducts(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(*project)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]ProjectDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}
	out := make([]ProjectDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*ProjectDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, lookupError(err)
	}
	return s.Get(ctx, id)
}

// Delete deactivates the project. Allocations stay in place.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.Deactivate[models.Project](ctx, tx, id); err != nil {
			return lookupError(err)
		}
		return nil
	})
}

// ReplaceTeam swaps the assignees and records project-team-change.
func (s *service) ReplaceTeam(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID, actor string) (*ProjectDTO, error) {
	userIDs = dedupe(userIDs)
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		project, err := txRepo.FindActive(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := ensureUsers(ctx, txRepo, userIDs); err != nil {
			return err
		}
		if err := txRepo.ReplaceAssignees(ctx, id, userIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace team")
		}
		return s.audit(ctx, tx, ledger.Entry{
			EventType: enums.ActivityProjectTeamChange,
			ActorName: actor,
			Project:   &project.Name,
			ProjectID: &project.ID,
			Notes:     strPtr(fmt.Sprintf("Team updated for project %q", project.Name)),
			Tags:      []string{"project", "team-change"},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// PartSummary totals allocated quantity and cost per part across the
// project's products.
func (s *service) PartSummary(ctx context.Context, id uuid.UUID) (*PartSummaryDTO, error) {
	if _, err := s.repo.FindActive(ctx, id); err != nil {
		return nil, lookupError(err)
	}
	totals, err := s.repo.PartTotals(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize project parts")
	}

	summary := &PartSummaryDTO{ProjectID: id, Parts: make([]PartSummaryLine, 0, len(totals)), TotalCost: decimal.Zero}
	for _, total := range totals {
		line := PartSummaryLine{
			PartID:   total.PartID,
			PartName: total.PartName,
			SKU:      total.SKU,
			Quantity: total.Quantity,
			LineCost: decimal.Zero,
		}
		if total.UnitCost.Valid {
			cost := total.UnitCost.Decimal
			line.UnitCost = &cost
			line.LineCost = cost.Mul(decimal.NewFromInt(int64(total.Quantity)))
		}
		summary.TotalCost = summary.TotalCost.Add(line.LineCost)
		summary.Parts = append(summary.Parts, line)
	}
	return summary, nil
}

func (s *service) audit(ctx context.Context, tx *gorm.DB, entry ledger.Entry) error {
	if _, err := s.writer.Append(ctx, tx, entry); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append project activity")
	}
	return nil
}

func ensureUsers(ctx context.Context, r *Repository, ids []uuid.UUID) error {
	count, err := r.CountActiveUsers(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load users")
	}
	if int(count) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "one or more assignees were not found")
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func lookupError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "project not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
}

func strPtr(s string) *string {
	return &s
}
