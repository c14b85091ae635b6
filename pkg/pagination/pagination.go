// Package pagination implements newest-first keyset paging over tables keyed
// by (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the (created_at, id) keyset of the last row on a page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// Encode renders c as unpadded base64url so it survives a query string.
func (c Cursor) Encode() string {
	c.CreatedAt = c.CreatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor reverses Encode. A blank value is the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimRight(strings.TrimSpace(value), "=")
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing keyset", ErrInvalidCursor)
	}
	return &c, nil
}

// Limit clamps a requested page size into [1, MaxLimit], using DefaultLimit
// for anything non-positive.
func Limit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// After is a gorm scope for the page following cursor. It asks for one extra
// row so Split can tell whether another page exists.
func After(cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC, id DESC").Limit(Limit(limit) + 1)
	}
}

// Split drops the lookahead row fetched by After and returns the cursor of the
// last row kept, or nil when rows held no further page.
func Split[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	n := Limit(limit)
	if len(rows) <= n {
		return rows, nil
	}
	last := key(rows[n-1])
	return rows[:n], &last
}
