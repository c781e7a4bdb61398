package middleware

import (
	"errors"
	"net/http"
	"strings"

	"photographer-backend/pkg/api"
	"photographer-backend/pkg/auth"

	"go.uber.org/zap"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims of accepted ones on the request context.
func Authenticate(validator TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				api.RespondError(w, http.StatusUnauthorized, api.Codes.Unauthorized, "missing authorization header")
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				api.RespondError(w, http.StatusUnauthorized, api.Codes.Unauthorized, "invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Token rejected",
					zap.String("requestId", GetRequestID(r.Context())),
					zap.Error(err),
				)
				msg := "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "token has expired"
				}
				api.RespondError(w, http.StatusUnauthorized, api.Codes.Unauthorized, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole admits only requests whose claims carry role. It must run after
// Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok || !claims.HasRole(role) {
				api.RespondError(w, http.StatusForbidden, api.Codes.Forbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
