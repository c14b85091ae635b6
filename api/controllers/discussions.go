package controllers

import (
	"net/http"

	"github.com/angelmondragon/gigbridge-backend/api/responses"
	"github.com/angelmondragon/gigbridge-backend/api/validators"
	"github.com/angelmondragon/gigbridge-backend/internal/discussions"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

type postDiscussionRequest struct {
	Text   string   `json:"text" validate:"max=5000"`
	Images []string `json:"images" validate:"max=10,dive,url"`
	Files  []string `json:"files" validate:"max=10,dive,url"`
}

type attachmentsRequest struct {
	Images []string `json:"images" validate:"max=10,dive,url"`
	Files  []string `json:"files" validate:"max=10,dive,url"`
}

// ListDiscussions returns the engagement thread oldest first.
func ListDiscussions(svc discussions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discussions service unavailable"))
			return
		}
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engagementID, err := uuidParam(r, "engagementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), discussions.ListInput{
			EngagementID: engagementID,
			ActorUserID:  caller.UserID,
			ActorRole:    caller.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discussions.EntriesFromModels(entries))
	}
}

func PostDiscussion(svc discussions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discussions service unavailable"))
			return
		}
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engagementID, err := uuidParam(r, "engagementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req postDiscussionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Post(r.Context(), discussions.PostInput{
			EngagementID: engagementID,
			SenderID:     caller.UserID,
			Text:         req.Text,
			Images:       req.Images,
			Files:        req.Files,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, discussions.EntryFromModel(*entry))
	}
}

// BackfillDiscussionAttachments appends finished upload references to an
// entry the caller sent.
func BackfillDiscussionAttachments(svc discussions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discussions service unavailable"))
			return
		}
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := uuidParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req attachmentsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.BackfillAttachments(r.Context(), discussions.BackfillInput{
			EntryID:  entryID,
			SenderID: caller.UserID,
			Images:   req.Images,
			Files:    req.Files,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discussions.EntryFromModel(*entry))
	}
}
