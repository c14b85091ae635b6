// Package auth verifies the HS256 access tokens minted by the identity
// service. The subject is the user id and the "role" claim the user's role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

var ErrInvalidToken = errors.New("invalid access token")

// Identity is who a token speaks for.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (id Identity) validate() error {
	if id.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !id.Role.IsValid() {
		return fmt.Errorf("unknown role %q", id.Role)
	}
	return nil
}

type accessClaims struct {
	Role enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Keys signs and verifies tokens for a single issuer and shared secret.
type Keys struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

func NewKeys(cfg config.JWTConfig) (*Keys, error) {
	if cfg.Secret == "" || cfg.Issuer == "" {
		return nil, errors.New("jwt secret and issuer are required")
	}
	return &Keys{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}, nil
}

// Sign mints a token for id valid from now for ttl. The API never issues
// tokens itself; tooling and tests sharing the secret do.
func (k *Keys) Sign(id Identity, now time.Time, ttl time.Duration) (string, error) {
	if err := id.validate(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	claims := accessClaims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    k.issuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry. Every failure wraps
// ErrInvalidToken.
func (k *Keys) Verify(raw string) (Identity, error) {
	var claims accessClaims
	if _, err := k.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	}); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	id := Identity{UserID: userID, Role: claims.Role}
	if err := id.validate(); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return id, nil
}
