package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/pagination"
)

type fakeStore struct {
	rows      []models.Notification
	next      *pagination.Cursor
	lastQuery listQuery
	unread    int64
	outcome   markOutcome
	marked    int64
	err       error
}

func (f *fakeStore) List(_ context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	f.lastQuery = q
	return f.rows, f.next, f.err
}

func (f *fakeStore) CountUnread(context.Context, uuid.UUID) (int64, error) {
	return f.unread, f.err
}

func (f *fakeStore) MarkRead(context.Context, uuid.UUID, uuid.UUID, time.Time) (markOutcome, error) {
	return f.outcome, f.err
}

func (f *fakeStore) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return f.marked, f.err
}

func newTestService(t *testing.T, s store) Service {
	t.Helper()
	svc, err := NewService(s)
	require.NoError(t, err)
	return svc
}

func TestListEncodesNextCursor(t *testing.T) {
	next := pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	fake := &fakeStore{
		rows:   []models.Notification{{ID: uuid.New()}},
		next:   &next,
		unread: 4,
	}
	svc := newTestService(t, fake)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 1, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, int64(4), result.UnreadCount)
	assert.Equal(t, 1, fake.lastQuery.Limit)
	assert.True(t, fake.lastQuery.UnreadOnly)
	assert.Nil(t, fake.lastQuery.Cursor)

	decoded, err := pagination.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, next.ID, decoded.ID)
}

func TestListEmptyPageIsNotNull(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New()})
	require.NoError(t, err)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Cursor)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMarkReadOutcomes(t *testing.T) {
	cases := map[markOutcome]pkgerrors.Code{
		markApplied:     "",
		markAlreadyRead: "",
		markMissing:     pkgerrors.CodeNotFound,
	}
	for outcome, code := range cases {
		svc := newTestService(t, &fakeStore{outcome: outcome})
		err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
		if code == "" {
			assert.NoError(t, err, "outcome %d", outcome)
			continue
		}
		assert.Equal(t, code, pkgerrors.As(err).Code(), "outcome %d", outcome)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc := newTestService(t, &fakeStore{marked: 3})
	n, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	svc = newTestService(t, &fakeStore{err: errors.New("boom")})
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestServiceRequiresIdentity(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	_, err := svc.List(context.Background(), ListParams{})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	_, err = svc.MarkAllRead(context.Background(), uuid.Nil)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	err = svc.MarkRead(context.Background(), uuid.New(), uuid.Nil)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = NewService(nil)
	assert.Error(t, err)
}
