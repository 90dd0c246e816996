package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	pkgAuth "github.com/angelmondragon/bookstall-backend/pkg/auth"
	"github.com/angelmondragon/bookstall-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// ActiveUserChecker rejects accounts that can no longer act, such as banned users.
type ActiveUserChecker interface {
	EnsureActive(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth admits requests carrying a live bearer token. sessions and users are
// optional; with users set a ban applies on the next request instead of at
// token expiry.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, users ActiveUserChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	gate := authGate{cfg: cfg, sessions: sessions, users: users}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := gate.admit(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			ctx = WithAccessID(ctx, claims.ID)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type authGate struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
	users    ActiveUserChecker
}

func (g authGate) admit(r *http.Request) (*pkgAuth.AccessTokenClaims, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(g.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	ctx := r.Context()
	if g.sessions != nil {
		live, err := g.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	if g.users != nil {
		if _, err := g.users.EnsureActive(ctx, claims.UserID); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// bearerToken accepts "Bearer <token>" in any case and, for older clients,
// a bare token.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(header, " ")
	if strings.EqualFold(scheme, "bearer") {
		if !found {
			return "", false
		}
		header = strings.TrimSpace(rest)
	}
	if header == "" || strings.ContainsAny(header, " \t") {
		return "", false
	}
	return header, true
}
