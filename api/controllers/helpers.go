package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/api/middleware"
	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/api/validators"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// currentUser resolves the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return id, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// bindJSON decodes the request body into a fresh T, writing the error itself.
func bindJSON[T any](w http.ResponseWriter, r *http.Request, logg *logger.Logger) (T, bool) {
	var req T
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return req, false
	}
	return req, true
}

// respond writes err when set and result with status otherwise.
func respond(w http.ResponseWriter, r *http.Request, logg *logger.Logger, status int, result any, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, result)
}
