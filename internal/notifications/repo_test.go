package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/internal/testdb"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

func seedNotification(t *testing.T, repo *Repository, userID uuid.UUID, createdAt time.Time, read bool) models.Notification {
	t.Helper()
	n := models.Notification{
		UserID:    userID,
		Type:      enums.NotificationTypeEngagementUpdated,
		Title:     "Engagement updated",
		Message:   "Your engagement moved to in-progress.",
		CreatedAt: createdAt,
	}
	if read {
		readAt := createdAt.Add(time.Minute)
		n.ReadAt = &readAt
	}
	require.NoError(t, repo.Create(context.Background(), &n))
	return n
}

func TestRepositoryListPaginatesPerUser(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	var seeded []models.Notification
	for i := 0; i < 3; i++ {
		seeded = append(seeded, seedNotification(t, repo, user, base.Add(time.Duration(i)*time.Hour), false))
	}
	seedNotification(t, repo, uuid.New(), base, false)

	page, cursor, err := repo.List(ctx, listQuery{UserID: user, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, seeded[2].ID, page[0].ID)
	assert.Equal(t, seeded[1].ID, page[1].ID)
	require.NotNil(t, cursor)

	rest, next, err := repo.List(ctx, listQuery{UserID: user, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, seeded[0].ID, rest[0].ID)
	assert.Nil(t, next)
}

func TestRepositoryMarkReadScopedToUser(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	ctx := context.Background()
	user := uuid.New()
	n := seedNotification(t, repo, user, time.Now().UTC(), false)

	unread, err := repo.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	outcome, err := repo.MarkRead(ctx, uuid.New(), n.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, markMissing, outcome)

	outcome, err = repo.MarkRead(ctx, user, n.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, markApplied, outcome)

	outcome, err = repo.MarkRead(ctx, user, n.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, markAlreadyRead, outcome)

	unread, err = repo.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, unread)

	page, _, err := repo.List(ctx, listQuery{UserID: user, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestRepositoryDeleteOlderThanKeepsUnread(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	ctx := context.Background()
	user := uuid.New()
	old := time.Now().UTC().Add(-200 * 24 * time.Hour)

	seedNotification(t, repo, user, old, true)
	keepUnread := seedNotification(t, repo, user, old, false)
	keepRecent := seedNotification(t, repo, user, time.Now().UTC(), true)

	deleted, err := repo.DeleteOlderThan(ctx, nil, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, _, err := repo.List(ctx, listQuery{UserID: user})
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{keepUnread.ID, keepRecent.ID}, ids)
}
