package controllers

import (
	"net/http"

	"github.com/angelmondragon/gigbridge-backend/api/responses"
	"github.com/angelmondragon/gigbridge-backend/api/validators"
	"github.com/angelmondragon/gigbridge-backend/internal/uploads"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

type presignRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=image file"`
	FileName    string `json:"fileName" validate:"notblank,max=255"`
	ContentType string `json:"contentType" validate:"required,max=255"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// PresignUpload hands the caller a short-lived PUT URL plus the reference
// to store once the upload finishes.
func PresignUpload(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uploads service unavailable"))
			return
		}
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req presignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseUploadKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload kind"))
			return
		}

		out, err := svc.PresignUpload(r.Context(), caller.UserID, uploads.PresignInput{
			Kind:        kind,
			FileName:    validators.CleanText(req.FileName, 255),
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}
