package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
)

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryError(key, msg string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, "invalid query parameter "+key).
		WithDetails(map[string]string{key: msg})
}

// ParseQueryInt reads an optional integer bounded to [min, max].
func ParseQueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be an integer", err)
	}
	if value < min || value > max {
		return 0, queryError(key, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max), nil)
	}
	return value, nil
}

// ParseQueryBool reads an optional boolean; absent means false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(key, "must be true or false", err)
	}
	return value, nil
}

// ParseQueryUUID reads an optional UUID filter; absent means nil.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, queryError(key, "must be a UUID", err)
	}
	return &id, nil
}

// CleanText trims surrounding whitespace and cuts s to at most maxRunes
// characters without splitting a multi-byte rune.
func CleanText(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
