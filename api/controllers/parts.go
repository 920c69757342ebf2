package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

// maxSearchRunes caps the part name/SKU filter.
const maxSearchRunes = 100

type createPartRequest struct {
	Name        string           `json:"name" validate:"required,notblank,max=200"`
	SKU         string           `json:"sku" validate:"required,notblank,max=100"`
	CategoryID  uuid.UUID        `json:"categoryId" validate:"required"`
	Description *string          `json:"description,omitempty"`
	UnitCost    *decimal.Decimal `json:"unitCost,omitempty"`
}

type updatePartRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	SKU         *string          `json:"sku,omitempty" validate:"omitempty,notblank,max=100"`
	CategoryID  *uuid.UUID       `json:"categoryId,omitempty"`
	Description *string          `json:"description,omitempty"`
	UnitCost    *decimal.Decimal `json:"unitCost,omitempty"`
}

func validUnitCost(cost *decimal.Decimal) error {
	if cost != nil && cost.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"unitCost": "must be at least 0"})
	}
	return nil
}

// CreatePart registers a part and records its create_part activity.
func CreatePart(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validUnitCost(payload.UnitCost); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Create(r.Context(), parts.CreatePartInput{
			Name:        strings.TrimSpace(payload.Name),
			SKU:         strings.TrimSpace(payload.SKU),
			CategoryID:  payload.CategoryID,
			Description: payload.Description,
			UnitCost:    payload.UnitCost,
		}, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, part)
	}
}

func ListParts(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), parts.ListPartsInput{
			Filter: parts.ListFilter{
				CategoryID: categoryID,
				Query:      validators.SearchTerm(r, "q", maxSearchRunes),
			},
			Page: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetPart(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func UpdatePart(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updatePartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validUnitCost(payload.UnitCost); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Update(r.Context(), id, parts.UpdatePartInput{
			Name:        payload.Name,
			SKU:         payload.SKU,
			CategoryID:  payload.CategoryID,
			Description: payload.Description,
			UnitCost:    payload.UnitCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func DeletePart(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
