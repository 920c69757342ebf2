package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/internal/allocation"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/projects"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

type stubParts struct {
	parts.Service
	listInput   *parts.ListPartsInput
	createActor string
	created     *parts.CreatePartInput
}

func (s *stubParts) List(_ context.Context, input parts.ListPartsInput) (*parts.PartListResult, error) {
	s.listInput = &input
	return &parts.PartListResult{Data: []parts.PartDTO{}, Pagination: pagination.PageMeta{CurrentPage: input.Page.Page, PageSize: input.Page.Limit}}, nil
}

func (s *stubParts) Create(_ context.Context, input parts.CreatePartInput, actor string) (*parts.PartDTO, error) {
	s.created = &input
	s.createActor = actor
	return &parts.PartDTO{ID: uuid.New(), Name: input.Name, SKU: input.SKU, CategoryID: input.CategoryID}, nil
}

type stubProjects struct {
	projects.Service
	deleteErr error
	deleted   []uuid.UUID
}

func (s *stubProjects) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

type stubEngine struct {
	AllocationEngine
	templateID uuid.UUID
	name       string
	err        error
}

func (s *stubEngine) ApplyTemplate(_ context.Context, projectID, templateID uuid.UUID, overrideName string, _ string) (*allocation.ProductDTO, error) {
	s.templateID = templateID
	s.name = overrideName
	if s.err != nil {
		return nil, s.err
	}
	return &allocation.ProductDTO{ID: uuid.New(), ProjectID: projectID, Name: overrideName, Parts: []allocation.ProductPartDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestListPartsParsesFilters(t *testing.T) {
	svc := &stubParts{}
	categoryID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/parts?categoryId="+categoryID.String()+"&q=%20bolt%20&page=2&limit=10", nil)
	rec := httptest.NewRecorder()

	ListParts(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listInput)
	assert.Equal(t, categoryID, *svc.listInput.Filter.CategoryID)
	assert.Equal(t, "bolt", svc.listInput.Filter.Query)
	assert.Equal(t, pagination.PageParams{Page: 2, Limit: 10}, svc.listInput.Page)
}

func TestListPartsRejectsBadQuery(t *testing.T) {
	cases := map[string]string{
		"limit over max": "/api/v1/parts?limit=500",
		"page zero":      "/api/v1/parts?page=0",
		"bad category":   "/api/v1/parts?categoryId=abc",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubParts{}
			rec := httptest.NewRecorder()
			ListParts(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.listInput)
		})
	}
}

func TestCreatePartValidation(t *testing.T) {
	categoryID := uuid.New()

	t.Run("negative unit cost", func(t *testing.T) {
		svc := &stubParts{}
		body := `{"name":"Bolt","sku":"B-1","categoryId":"` + categoryID.String() + `","unitCost":"-1.50"}`
		rec := httptest.NewRecorder()
		CreatePart(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unitCost")
		assert.Nil(t, svc.created)
	})

	t.Run("blank sku", func(t *testing.T) {
		svc := &stubParts{}
		body := `{"name":"Bolt","sku":"   ","categoryId":"` + categoryID.String() + `"}`
		rec := httptest.NewRecorder()
		CreatePart(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.created)
	})

	t.Run("trims and forwards actor", func(t *testing.T) {
		svc := &stubParts{}
		body := `{"name":"  Bolt ","sku":"B-1","categoryId":"` + categoryID.String() + `","unitCost":"0.25"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(body))
		req = req.WithContext(middleware.WithActor(req.Context(), "Robin"))
		rec := httptest.NewRecorder()
		CreatePart(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Bolt", svc.created.Name)
		assert.Equal(t, "0.25", svc.created.UnitCost.String())
		assert.Equal(t, "Robin", svc.createActor)
	})
}

func TestDeleteProject(t *testing.T) {
	id := uuid.New()

	t.Run("no content", func(t *testing.T) {
		svc := &stubProjects{}
		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", id.String())
		rec := httptest.NewRecorder()
		DeleteProject(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, []uuid.UUID{id}, svc.deleted)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubProjects{deleteErr: pkgerrors.New(pkgerrors.CodeNotFound, "project not found")}
		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", id.String())
		rec := httptest.NewRecorder()
		DeleteProject(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "project not found")
	})
}

func TestApplyTemplate(t *testing.T) {
	projectID, templateID := uuid.New(), uuid.New()

	t.Run("created", func(t *testing.T) {
		engine := &stubEngine{}
		body := `{"templateId":"` + templateID.String() + `","productName":"Rack A"}`
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "id", projectID.String())
		rec := httptest.NewRecorder()
		ApplyTemplate(engine, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, templateID, engine.templateID)
		assert.Equal(t, "Rack A", engine.name)
	})

	t.Run("missing template id", func(t *testing.T) {
		engine := &stubEngine{}
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), "id", projectID.String())
		rec := httptest.NewRecorder()
		ApplyTemplate(engine, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, uuid.Nil, engine.templateID)
	})

	t.Run("state conflict", func(t *testing.T) {
		engine := &stubEngine{err: pkgerrors.New(pkgerrors.CodeStateConflict, "project is not in progress")}
		body := `{"templateId":"` + templateID.String() + `"}`
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "id", projectID.String())
		rec := httptest.NewRecorder()
		ApplyTemplate(engine, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeStateConflict))
	})
}

func TestHealthReadyReportsDisabledDependencies(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(testConfig(), nil, map[string]Pinger{"redis": nil}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"disabled"`)
}
