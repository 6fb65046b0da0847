package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/carrental-backend/api/responses"
	"github.com/angelmondragon/carrental-backend/internal/policy"
	pkgAuth "github.com/angelmondragon/carrental-backend/pkg/auth"
	"github.com/angelmondragon/carrental-backend/pkg/auth/session"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
)

// Auth resolves the caller. A request without an Authorization header runs
// as a guest; a header that is present but does not carry a valid, live
// session is rejected.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), policy.Guest())))
				return
			}

			token := BearerToken(raw)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}
			if !claims.Role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid role"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked"))
					return
				}
			}

			ctx := WithPrincipal(r.Context(), policy.Principal{
				UserID:    claims.UserID,
				Role:      claims.Role,
				SessionID: claims.ID,
			})
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

// BearerToken strips an optional "Bearer " prefix.
func BearerToken(header string) string {
	token := strings.TrimSpace(header)
	if strings.EqualFold(token, "bearer") {
		return ""
	}
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
