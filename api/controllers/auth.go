package controllers

import (
	"net/http"

	"github.com/angelmondragon/bookstall-backend/api/middleware"
	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/internal/auth"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// AuthRegister answers 201 with a session for the new account.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		req, ok := bindJSON[auth.RegisterRequest](w, r, logg)
		if !ok {
			return
		}
		session, err := svc.Register(r.Context(), req)
		respond(w, r, logg, http.StatusCreated, session, err)
	}
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		req, ok := bindJSON[auth.LoginRequest](w, r, logg)
		if !ok {
			return
		}
		session, err := svc.Login(r.Context(), req)
		respond(w, r, logg, http.StatusOK, session, err)
	}
}

// AuthLogout revokes the session the bearer token belongs to. The token
// itself stays valid until expiry but fails the session check.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		if err := svc.Logout(r.Context(), middleware.AccessIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
