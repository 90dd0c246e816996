package controllers

import (
	"net/http"

	"github.com/angelmondragon/bookstall-backend/api/middleware"
	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/api/validators"
	"github.com/angelmondragon/bookstall-backend/internal/reviews"
	"github.com/angelmondragon/bookstall-backend/internal/users"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

type banRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// AdminBanUser blocks a user from acting on the marketplace.
func AdminBanUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return moderateUser(svc, logg, true)
}

// AdminUnbanUser lifts a ban.
func AdminUnbanUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return moderateUser(svc, logg, false)
}

func moderateUser(svc users.Service, logg *logger.Logger, ban bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		actorID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		targetID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := users.BanInput{
			ActorUserID: actorID,
			ActorRole:   enums.UserRole(middleware.RoleFromContext(r.Context())),
			TargetID:    targetID,
		}
		if ban {
			var req banRequest
			if r.ContentLength != 0 {
				if err := validators.DecodeJSONBody(r, &req); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
			input.Reason = validators.SanitizeString(req.Reason, 500)
			err = svc.Ban(r.Context(), input)
		} else {
			err = svc.Unban(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": targetID, "banned": ban})
	}
}

// AdminRecomputeRatings rebuilds every rating aggregate from the stored reviews.
func AdminRecomputeRatings(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		updated, err := svc.RecomputeAggregates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
