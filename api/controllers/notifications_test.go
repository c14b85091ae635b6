package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/internal/notifications"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
)

// inbox records what the handlers pass to the notifications service.
type inbox struct {
	listed   *notifications.ListParams
	readUser uuid.UUID
	readID   uuid.UUID
	allUser  uuid.UUID
	updated  int64
	err      error
}

func (b *inbox) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	b.listed = &params
	if b.err != nil {
		return nil, b.err
	}
	return &notifications.ListResult{Cursor: "next"}, nil
}

func (b *inbox) MarkRead(_ context.Context, userID, notificationID uuid.UUID) error {
	b.readUser, b.readID = userID, notificationID
	return b.err
}

func (b *inbox) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	b.allUser = userID
	return b.updated, b.err
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Data
}

func TestMarkNotificationRead(t *testing.T) {
	userID, notificationID := uuid.New(), uuid.New()
	svc := &inbox{}

	req := newRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", "",
		userID, enums.UserRoleFreelancer, map[string]string{"notificationId": notificationID.String()})
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.readUser)
	assert.Equal(t, notificationID, svc.readID)
	assert.True(t, decodeData[map[string]bool](t, rec)["read"])
}

func TestMarkNotificationReadErrors(t *testing.T) {
	cases := []struct {
		name   string
		param  string
		svcErr error
		status int
		code   pkgerrors.Code
	}{
		{"malformed id", "bogus", nil, http.StatusBadRequest, pkgerrors.CodeValidation},
		{"someone else's notification", uuid.NewString(), pkgerrors.New(pkgerrors.CodeNotFound, "notification not found"), http.StatusNotFound, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newRequest(http.MethodPost, "/", "", uuid.New(), enums.UserRoleClient,
				map[string]string{"notificationId": tc.param})
			rec := httptest.NewRecorder()
			MarkNotificationRead(&inbox{err: tc.svcErr}, testLogger())(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, string(tc.code), decodeErrorCode(t, rec))
		})
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	userID := uuid.New()
	svc := &inbox{updated: 3}

	req := newRequest(http.MethodPost, "/api/v1/notifications/read-all", "", userID, enums.UserRoleClient, nil)
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.allUser)
	assert.Equal(t, int64(3), decodeData[map[string]int64](t, rec)["updated"])
}

func TestListNotificationsQuery(t *testing.T) {
	userID := uuid.New()
	svc := &inbox{}

	req := newRequest(http.MethodGet, "/api/v1/notifications?limit=10&unreadOnly=true&cursor=c1", "",
		userID, enums.UserRoleFreelancer, nil)
	rec := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listed)
	assert.Equal(t, notifications.ListParams{UserID: userID, Limit: 10, Cursor: "c1", UnreadOnly: true}, *svc.listed)
}

func TestListNotificationsRejectsBadQuery(t *testing.T) {
	for _, query := range []string{"unreadOnly=maybe", "limit=0", "limit=101"} {
		t.Run(query, func(t *testing.T) {
			svc := &inbox{}
			req := newRequest(http.MethodGet, "/api/v1/notifications?"+query, "",
				uuid.New(), enums.UserRoleFreelancer, nil)
			rec := httptest.NewRecorder()
			ListNotifications(svc, testLogger())(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.listed)
		})
	}
}

func TestNotificationsRequireCaller(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/notifications/read-all", "", uuid.Nil, "", nil)
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(&inbox{}, testLogger())(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
