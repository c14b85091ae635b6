package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

func mustKeys(t *testing.T, issuer string) *Keys {
	t.Helper()
	keys, err := NewKeys(config.JWTConfig{Secret: "secret", Issuer: issuer})
	require.NoError(t, err)
	return keys
}

func TestSignThenVerify(t *testing.T) {
	keys := mustKeys(t, "gigbridge")
	want := Identity{UserID: uuid.New(), Role: enums.UserRoleClient}

	token, err := keys.Sign(want, time.Now(), 30*time.Minute)
	require.NoError(t, err)

	got, err := keys.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVerifyRejects(t *testing.T) {
	keys := mustKeys(t, "gigbridge")
	id := Identity{UserID: uuid.New(), Role: enums.UserRoleFreelancer}

	valid, err := keys.Sign(id, time.Now(), 10*time.Minute)
	require.NoError(t, err)
	foreign, err := mustKeys(t, "someone-else").Sign(id, time.Now(), time.Minute)
	require.NoError(t, err)
	expired, err := keys.Sign(id, time.Now().Add(-time.Hour), 15*time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role:             id.Role,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "gigbridge", Subject: id.UserID.String()},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gigbridge",
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, accessClaims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gigbridge",
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"tampered signature": valid + "x",
		"wrong issuer":       foreign,
		"expired":            expired,
		"no expiry":          noExpiry,
		"subject not a uuid": badSubject,
		"alg none":           unsigned,
		"garbage":            "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := keys.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSignValidates(t *testing.T) {
	keys := mustKeys(t, "gigbridge")
	_, err := keys.Sign(Identity{UserID: uuid.New()}, time.Now(), time.Minute)
	assert.Error(t, err, "missing role")
	_, err = keys.Sign(Identity{Role: enums.UserRoleAdmin}, time.Now(), time.Minute)
	assert.Error(t, err, "missing user")
	_, err = keys.Sign(Identity{UserID: uuid.New(), Role: enums.UserRoleAdmin}, time.Now(), 0)
	assert.Error(t, err, "zero ttl")
}

func TestNewKeysRequiresSecretAndIssuer(t *testing.T) {
	_, err := NewKeys(config.JWTConfig{Secret: "s"})
	assert.Error(t, err)
	_, err = NewKeys(config.JWTConfig{Issuer: "i"})
	assert.Error(t, err)
}
