package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

type recordActivityRequest struct {
	EventType        string     `json:"eventType" validate:"required"`
	PartID           *uuid.UUID `json:"partId,omitempty"`
	Qty              int        `json:"qty"`
	CounterpartyName *string    `json:"counterpartyName,omitempty"`
	Purpose          *string    `json:"purpose,omitempty"`
	Project          *string    `json:"project,omitempty"`
	ProjectID        *uuid.UUID `json:"projectId,omitempty"`
	ProductID        *uuid.UUID `json:"productId,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	InvoiceNumber    *string    `json:"invoiceNumber,omitempty"`
	InvoiceDate      *time.Time `json:"invoiceDate,omitempty"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	Tags             []string   `json:"tags,omitempty" validate:"omitempty,dive,notblank"`
	CategoryName     *string    `json:"categoryName,omitempty"`
}

// RecordActivity appends a manual ledger entry such as a receipt or issue.
func RecordActivity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload recordActivityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventType, err := enums.ParseActivityEventType(strings.TrimSpace(payload.EventType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type"))
			return
		}
		activity, err := svc.Record(r.Context(), ledger.RecordActivityInput{
			EventType:        eventType,
			PartID:           payload.PartID,
			Qty:              payload.Qty,
			ActorName:        middleware.ActorFromContext(r.Context()),
			CounterpartyName: payload.CounterpartyName,
			Purpose:          payload.Purpose,
			Project:          payload.Project,
			ProjectID:        payload.ProjectID,
			ProductID:        payload.ProductID,
			Notes:            payload.Notes,
			InvoiceNumber:    payload.InvoiceNumber,
			InvoiceDate:      payload.InvoiceDate,
			Timestamp:        payload.Timestamp,
			Tags:             payload.Tags,
			CategoryName:     payload.CategoryName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, activity)
	}
}

// ListActivities pages through the ledger newest first. A cursor query
// parameter switches to keyset paging.
func ListActivities(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parseActivityFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), ledger.ListActivitiesInput{
			Filter: filter,
			Page:   page,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetActivity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activity, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, activity)
	}
}

func parseActivityFilter(r *http.Request) (ledger.ListFilter, error) {
	var filter ledger.ListFilter
	var err error
	if filter.PartID, err = validators.ParseQueryUUID(r, "partId"); err != nil {
		return filter, err
	}
	if filter.ProjectID, err = validators.ParseQueryUUID(r, "projectId"); err != nil {
		return filter, err
	}
	if filter.ProductID, err = validators.ParseQueryUUID(r, "productId"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("eventType")); raw != "" {
		eventType, parseErr := enums.ParseActivityEventType(raw)
		if parseErr != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid event type").WithDetails(map[string]any{"field": "eventType"})
		}
		filter.EventType = &eventType
	}
	return filter, nil
}
