package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigbridge-backend/api/responses"
	"github.com/angelmondragon/gigbridge-backend/api/validators"
	"github.com/angelmondragon/gigbridge-backend/internal/engagements"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/pagination"
)

type applyRequest struct {
	Content []engagements.ContentInput `json:"content" validate:"max=20,dive"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"notblank"`
}

type settlementPayload struct {
	AlreadySettled bool            `json:"alreadySettled"`
	Credited       bool            `json:"credited"`
	Amount         decimal.Decimal `json:"amount"`
}

type transitionPayload struct {
	Engagement engagements.View   `json:"engagement"`
	Changed    bool               `json:"changed"`
	Settlement *settlementPayload `json:"settlement,omitempty"`
}

// ApplyToProject opens a pending engagement for the calling freelancer.
func ApplyToProject(svc engagements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagements service unavailable"))
			return
		}
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		projectID, err := uuidParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req applyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engagement, err := svc.Apply(r.Context(), engagements.ApplyInput{
			FreelancerID: caller.UserID,
			ProjectID:    projectID,
			Content:      req.Content,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, engagements.SummaryView(engagement))
	}
}

func ListEngagements(svc engagements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagements service unavailable"))
			return
		}
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := validators.ParseQueryUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		freelancerID, err := validators.ParseQueryUUID(r, "freelancerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), engagements.ListParams{
			ProjectID:    projectID,
			FreelancerID: freelancerID,
			Status:       r.URL.Query().Get("status"),
			Limit:        limit,
			Cursor:       r.URL.Query().Get("cursor"),
			ActorUserID:  caller.UserID,
			ActorRole:    caller.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetEngagement returns one engagement with its project, freelancer and thread.
func GetEngagement(svc engagements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagements service unavailable"))
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

		view, err := svc.Get(r.Context(), engagements.GetInput{
			EngagementID: engagementID,
			ActorUserID:  caller.UserID,
			ActorRole:    caller.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// TransitionEngagementStatus moves an engagement to the requested status.
// Moving to completed settles the engagement in the same call.
func TransitionEngagementStatus(svc engagements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagements service unavailable"))
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

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithEngagementID(r.Context(), engagementID.String())
		result, err := svc.TransitionStatus(ctx, engagements.TransitionInput{
			EngagementID: engagementID,
			Status:       req.Status,
			ActorUserID:  caller.UserID,
			ActorRole:    caller.Role,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := transitionPayload{
			Engagement: engagements.SummaryView(result.Engagement),
			Changed:    result.Changed,
		}
		if s := result.Settlement; s != nil {
			payload.Settlement = &settlementPayload{
				AlreadySettled: s.AlreadySettled,
				Credited:       s.Credited,
				Amount:         s.Amount,
			}
		}
		responses.WriteSuccess(w, payload)
	}
}

func RejectEngagement(svc engagements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagements service unavailable"))
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

		engagement, err := svc.Reject(r.Context(), engagements.RejectInput{
			EngagementID: engagementID,
			ActorUserID:  caller.UserID,
			ActorRole:    caller.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engagements.SummaryView(engagement))
	}
}

// AppendEngagementContent adds a deliverable block to the freelancer's engagement.
func AppendEngagementContent(svc engagements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagements service unavailable"))
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

		var req engagements.ContentInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engagement, err := svc.AppendContent(r.Context(), engagements.AppendContentInput{
			EngagementID: engagementID,
			ActorUserID:  caller.UserID,
			Entry:        req,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engagements.SummaryView(engagement))
	}
}
