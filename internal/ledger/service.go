package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

// Service exposes the manual activity log.
type Service interface {
	Record(ctx context.Context, input RecordActivityInput) (*ActivityDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ActivityDTO, error)
	List(ctx context.Context, input ListActivitiesInput) (*ActivityListResult, error)
}

// RecordActivityInput is a manual ledger entry (receipt, issue, return...).
type RecordActivityInput struct {
	EventType        enums.ActivityEventType
	PartID           *uuid.UUID
	Qty              int
	ActorName        string
	CounterpartyName *string
	Purpose          *string
	Project          *string
	ProjectID        *uuid.UUID
	ProductID        *uuid.UUID
	Notes            *string
	InvoiceNumber    *string
	InvoiceDate      *time.Time
	Timestamp        *time.Time
	Tags             []string
	CategoryName     *string
}

// ListActivitiesInput selects page mode or, when Cursor is set, cursor mode.
type ListActivitiesInput struct {
	Filter ListFilter
	Page   pagination.PageParams
	Cursor string
}

type availabilityChecker interface {
	CheckForUpdate(ctx context.Context, tx *gorm.DB, reqs []inventory.Requirement) (inventory.Report, error)
}

type service struct {
	repo     *Repository
	writer   *Writer
	checker  availabilityChecker
	dbClient db.TxRunner
}

// NewService wires the activity log service.
func NewService(repo *Repository, writer *Writer, checker availabilityChecker, dbClient db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if checker == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, writer: writer, checker: checker, dbClient: dbClient}, nil
}

// Record appends a manual activity. Outbound events are checked against the
// locked balance so a manual issue cannot overdraw stock.
func (s *service) Record(ctx context.Context, input RecordActivityInput) (*ActivityDTO, error) {
	if !input.EventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid event type %q", input.EventType))
	}
	if input.Qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "qty must be a non-negative magnitude")
	}

	var created *models.Activity
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		categoryName := input.CategoryName
		if input.PartID != nil {
			var part models.Part
			if err := tx.WithContext(ctx).Preload("Category").First(&part, "id = ?", *input.PartID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
			}
			if (categoryName == nil || strings.TrimSpace(*categoryName) == "") && part.Category != nil {
				name := part.Category.Name
				categoryName = &name
			}
			if input.EventType.Direction() < 0 && input.Qty > 0 {
				report, err := s.checker.CheckForUpdate(ctx, tx, []inventory.Requirement{{
					PartID:   part.ID,
					PartName: part.Name,
					Quantity: input.Qty,
				}})
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check availability")
				}
				if !report.CanFulfill {
					return inventory.ShortageError(report)
				}
			}
		}

		activity, err := s.writer.Append(ctx, tx, Entry{
			EventType:        input.EventType,
			PartID:           input.PartID,
			Qty:              input.Qty,
			ActorName:        input.ActorName,
			CounterpartyName: input.CounterpartyName,
			Purpose:          input.Purpose,
			Project:          input.Project,
			ProjectID:        input.ProjectID,
			ProductID:        input.ProductID,
			Notes:            input.Notes,
			InvoiceNumber:    input.InvoiceNumber,
			InvoiceDate:      input.InvoiceDate,
			Timestamp:        input.Timestamp,
			Tags:             input.Tags,
			CategoryName:     categoryName,
		})
		if err != nil {
			return storeError(err, "append activity")
		}
		created = activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ActivityDTO, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load activity")
	}
	dto := FromModel(*activity)
	return &dto, nil
}

// List returns activities newest first.
func (s *service) List(ctx context.Context, input ListActivitiesInput) (*ActivityListResult, error) {
	if strings.TrimSpace(input.Cursor) != "" {
		return s.listByCursor(ctx, input)
	}

	page := input.Page.Normalize()
	rows, total, err := s.repo.ListPage(ctx, input.Filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activities")
	}
	meta := page.Meta(total)
	return &ActivityListResult{Data: toDTOs(rows), Pagination: &meta}, nil
}

func (s *service) listByCursor(ctx context.Context, input ListActivitiesInput) (*ActivityListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Page.Limit)
	rows, err := s.repo.ListAfter(ctx, input.Filter, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activities")
	}

	result := &ActivityListResult{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	result.Data = toDTOs(rows)
	return result, nil
}

func toDTOs(rows []models.Activity) []ActivityDTO {
	out := make([]ActivityDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// storeError keeps typed errors intact and classifies raw store failures.
func storeError(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsForeignKeyViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "referenced record not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
