package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/repo"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service manages part categories.
type Service interface {
	Create(ctx context.Context, name string) (*CategoryDTO, error)
	List(ctx context.Context) ([]CategoryDTO, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
}

func NewService(repo *Repository, dbClient db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) Create(ctx context.Context, name string) (*CategoryDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := models.Category{Name: name, IsActive: true}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := fromModel(category)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (s *service) Rename(ctx context.Context, id uuid.UUID, name string) (*CategoryDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return nil, lookupError(err)
	}
	category, err := s.repo.FindActive(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := fromModel(*category)
	return &dto, nil
}

// Delete deactivates the category. It fails with STATE_CONFLICT while any
// active part still references it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindActive(ctx, id); err != nil {
			return lookupError(err)
		}
		count, err := txRepo.CountActiveParts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category parts")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot delete category: %d active parts are using it", count)).
				WithDetails(map[string]any{"activeParts": count})
		}
		if err := repo.Deactivate[models.Category](ctx, tx, id); err != nil {
			return lookupError(err)
		}
		return nil
	})
}

func fromModel(c models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
}
