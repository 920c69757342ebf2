package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/templates"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

type templateLineRequest struct {
	PartID   uuid.UUID `json:"partId" validate:"required"`
	Quantity int       `json:"quantity"`
}

type createTemplateRequest struct {
	Name        string                `json:"name" validate:"required,notblank,max=200"`
	Description *string               `json:"description,omitempty"`
	Lines       []templateLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateTemplateRequest struct {
	Name        *string                `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string                `json:"description,omitempty"`
	Lines       *[]templateLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

func toLineInputs(lines []templateLineRequest) []templates.LineInput {
	out := make([]templates.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, templates.LineInput{PartID: line.PartID, Quantity: line.Quantity})
	}
	return out
}

func CreateTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createTemplateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Create(r.Context(), templates.CreateTemplateInput{
			Name:        strings.TrimSpace(payload.Name),
			Description: payload.Description,
			Lines:       toLineInputs(payload.Lines),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, tmpl)
	}
}

func ListTemplates(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tmpl)
	}
}

// UpdateTemplate patches metadata; a lines array replaces every existing line.
func UpdateTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateTemplateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := templates.UpdateTemplateInput{Name: payload.Name, Description: payload.Description}
		if payload.Lines != nil {
			lines := toLineInputs(*payload.Lines)
			input.Lines = &lines
		}
		tmpl, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tmpl)
	}
}

func DeleteTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
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

// TemplateAvailability reports every short line without allocating anything.
func TemplateAvailability(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.CheckAvailability(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
