package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
)

type actor = middleware.Caller

func actorFromRequest(r *http.Request) (actor, error) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if !caller.Role.IsValid() {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "invalid role")
	}
	return caller, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
