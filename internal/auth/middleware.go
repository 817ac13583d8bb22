package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
)

type principalKey struct{}

// WithPrincipal stores the verified caller on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p != ""
}

// AdminGuard requires the bcrypt-matching admin bearer token. An empty hash
// lets every request through; config validation refuses that in production.
func AdminGuard(tokenHash string, logger zerolog.Logger) func(http.Handler) http.Handler {
	if tokenHash == "" {
		logger.Warn().Msg("admin endpoints are unauthenticated (ADMIN_TOKEN_HASH unset)")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeMissingCredential, "Missing Authorization Bearer token")
				return
			}
			if err := VerifyAdminToken(tokenHash, token); err != nil {
				logger.Warn().Str("path", r.URL.Path).Msg("admin token rejected")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidCredential, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal("admin"))))
		})
	}
}
