package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/internal/testdb"
)

func TestLimit(t *testing.T) {
	for in, want := range map[int]int{0: DefaultLimit, -3: DefaultLimit, 7: 7, MaxLimit: MaxLimit, MaxLimit + 1: MaxLimit} {
		assert.Equal(t, want, Limit(in), "Limit(%d)", in)
	}
}

func TestCursorRoundTripsThroughQueryString(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.FixedZone("CET", 3600)),
		ID:        uuid.New(),
	}
	encoded := in.Encode()
	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")

	out, err := ParseCursor(encoded)
	require.NoError(t, err)
	assert.True(t, out.CreatedAt.Equal(in.CreatedAt))
	assert.Equal(t, time.UTC, out.CreatedAt.Location())
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursor(t *testing.T) {
	blank, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, blank)

	bad := map[string]string{
		"not base64":    "not a cursor!",
		"not json":      base64.RawURLEncoding.EncodeToString([]byte("2026|x")),
		"unknown field": base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2026-01-01T00:00:00Z","id":"` + uuid.NewString() + `","x":1}`)),
		"zero keyset":   Cursor{}.Encode(),
	}
	for name, value := range bad {
		_, err := ParseCursor(value)
		assert.ErrorIs(t, err, ErrInvalidCursor, name)
	}
}

type item struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	CreatedAt time.Time
}

func itemKey(i item) Cursor { return Cursor{CreatedAt: i.CreatedAt, ID: i.ID} }

func TestSplit(t *testing.T) {
	base := time.Now().UTC()
	rows := []item{
		{ID: uuid.New(), CreatedAt: base},
		{ID: uuid.New(), CreatedAt: base.Add(-time.Second)},
		{ID: uuid.New(), CreatedAt: base.Add(-2 * time.Second)},
	}

	page, next := Split(rows, 2, itemKey)
	assert.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, rows[1].ID, next.ID)

	page, next = Split(rows[:2], 2, itemKey)
	assert.Len(t, page, 2)
	assert.Nil(t, next)
}

func TestAfterWalksEveryRowOnce(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, db.Exec(`CREATE TABLE items (id TEXT PRIMARY KEY, created_at DATETIME)`).Error)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 7 {
		// pairs share a timestamp so the id tiebreak is exercised
		require.NoError(t, db.Create(&item{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i/2) * time.Minute)}).Error)
	}

	seen := map[uuid.UUID]bool{}
	var cursor *Cursor
	pages := 0
	for {
		var rows []item
		require.NoError(t, db.Scopes(After(cursor, 3)).Find(&rows).Error)
		page, next := Split(rows, 3, itemKey)
		pages++
		for _, row := range page {
			assert.False(t, seen[row.ID], "row %s repeated", row.ID)
			seen[row.ID] = true
		}
		if next == nil {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 7)
	assert.Equal(t, 3, pages)
}
