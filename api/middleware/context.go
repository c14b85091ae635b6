package middleware

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

type ctxKey int

const (
	callerKey ctxKey = iota
	requestIDKey
)

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (c Caller) HasRole(roles ...enums.UserRole) bool {
	return slices.Contains(roles, c.Role)
}

// WithCaller stores c on ctx the way Auth does once a token checks out.
func WithCaller(ctx context.Context, c Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom reports false for requests that never went through Auth.
func CallerFrom(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok && c.UserID != uuid.Nil
}
