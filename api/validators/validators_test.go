package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

type namedBody struct {
	Name     string  `json:"name" validate:"required,notblank,max=10"`
	Nickname *string `json:"nickname,omitempty" validate:"omitempty,notblank"`
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		field   string
	}{
		{"valid", `{"name":"Beam"}`, false, ""},
		{"missing name", `{}`, true, "name"},
		{"blank name", `{"name":"   "}`, true, "name"},
		{"too long", `{"name":"abcdefghijkl"}`, true, "name"},
		{"blank nickname", `{"name":"Beam","nickname":" "}`, true, "nickname"},
		{"unknown field", `{"name":"Beam","extra":1}`, true, ""},
		{"malformed", `{"name":`, true, ""},
		{"empty", ``, true, ""},
		{"trailing value", `{"name":"Beam"} {"name":"Beam"}`, true, ""},
		{"too large", `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dest namedBody
			err := DecodeJSONBody(req, &dest)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			if tt.field != "" {
				details, ok := pkgerrors.As(err).Details().(map[string]string)
				require.True(t, ok)
				assert.Contains(t, details, tt.field)
			}
		})
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	got, err := ParseUUIDParam(withParam(id.String()), "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(withParam("not-a-uuid"), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseUUIDParam(withParam(""), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500&partId=bad", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing, err := ParseQueryUUID(req, "projectId")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryUUID(req, "partId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSearchTermCutsOnRuneBoundaries(t *testing.T) {
	q := url.Values{"q": {"  " + strings.Repeat("é", 5) + "  "}}
	req := httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)

	term := SearchTerm(req, "q", 3)
	assert.Equal(t, "ééé", term)
	assert.True(t, utf8.ValidString(term))

	assert.Equal(t, "ééééé", SearchTerm(req, "q", 0))
	assert.Empty(t, SearchTerm(req, "missing", 10))

	bad := httptest.NewRequest(http.MethodGet, "/?q=%ff%fe", nil)
	assert.True(t, utf8.ValidString(SearchTerm(bad, "q", 10)))
}
