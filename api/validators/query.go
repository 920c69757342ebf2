package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

// ParseQueryInt reads an optional bounded integer such as page or limit.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be a whole number").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryUUID reads an optional id filter such as partId or projectId.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// SearchTerm reads a free-text filter, trimmed and cut to at most maxRunes
// characters. Invalid UTF-8 is replaced rather than passed to the store.
func SearchTerm(r *http.Request, key string, maxRunes int) string {
	term := strings.TrimSpace(strings.ToValidUTF8(r.URL.Query().Get(key), "\uFFFD"))
	if maxRunes <= 0 || utf8.RuneCountInString(term) <= maxRunes {
		return term
	}
	runes := []rune(term)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
