package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/auth"
	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

func testKeys(t *testing.T) *auth.Keys {
	t.Helper()
	keys, err := auth.NewKeys(config.JWTConfig{Secret: "secret", Issuer: "issuer"})
	require.NoError(t, err)
	return keys
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func authRequest(header string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestAuthRejectsBadCredentials(t *testing.T) {
	for name, header := range map[string]string{
		"missing":   "",
		"garbage":   "Bearer invalid",
		"bare word": "Bearer",
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Auth(testKeys(t), nil)(okHandler).ServeHTTP(rec, authRequest(header))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthStoresCaller(t *testing.T) {
	userID := uuid.New()
	keys := testKeys(t)
	token, err := keys.Sign(auth.Identity{UserID: userID, Role: enums.UserRoleFreelancer}, time.Now(), time.Hour)
	require.NoError(t, err)

	var seen Caller
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, found = CallerFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	Auth(keys, nil)(next).ServeHTTP(rec, authRequest("bearer "+token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, Caller{UserID: userID, Role: enums.UserRoleFreelancer}, seen)
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(nil, enums.UserRoleClient, enums.UserRoleAdmin)

	cases := map[enums.UserRole]int{
		enums.UserRoleClient:     http.StatusOK,
		enums.UserRoleAdmin:      http.StatusOK,
		enums.UserRoleFreelancer: http.StatusForbidden,
		"":                       http.StatusForbidden,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithCaller(req.Context(), Caller{UserID: uuid.New(), Role: role}))
		rec := httptest.NewRecorder()
		mw(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRole(nil, enums.UserRoleAdmin)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallerFromIgnoresNilUser(t *testing.T) {
	ctx := WithCaller(httptest.NewRequest(http.MethodGet, "/", nil).Context(), Caller{Role: enums.UserRoleAdmin})
	_, ok := CallerFrom(ctx)
	assert.False(t, ok)
}
