package question

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/access"
	"github.com/gokatarajesh/question-bank/internal/auth"
	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
)

// ErrNoActiveAccess is returned when the caller holds no usable grant.
var ErrNoActiveAccess = errors.New("no active access")

// EntitlementChecker decides whether a principal may read content.
type EntitlementChecker interface {
	HasActiveEntitlement(ctx context.Context, principal auth.Principal) (bool, error)
}

// Gate verifies a credential and then the caller's entitlement.
type Gate struct {
	verifier auth.TokenVerifier
	checker  EntitlementChecker
}

func NewGate(verifier auth.TokenVerifier, checker EntitlementChecker) *Gate {
	return &Gate{verifier: verifier, checker: checker}
}

// Admit returns the principal when credential is valid and entitled. Errors
// wrap auth.ErrInvalidCredential, access.ErrLookupFailed or ErrNoActiveAccess.
func (g *Gate) Admit(ctx context.Context, credential string) (auth.Principal, error) {
	principal, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredential) {
			err = fmt.Errorf("%w: %w", auth.ErrInvalidCredential, err)
		}
		return "", err
	}

	ok, err := g.checker.HasActiveEntitlement(ctx, principal)
	if err != nil {
		if !errors.Is(err, access.ErrLookupFailed) {
			err = fmt.Errorf("%w: %w", access.ErrLookupFailed, err)
		}
		return principal, err
	}
	if !ok {
		return principal, ErrNoActiveAccess
	}
	return principal, nil
}

// respondGateError maps an Admit failure onto the HTTP taxonomy.
func respondGateError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeMissingCredential, "Missing Authorization Bearer token")
	case errors.Is(err, auth.ErrInvalidCredential):
		logger.Info().Err(err).Msg("credential rejected")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidCredential, "Invalid or expired token")
	case errors.Is(err, ErrNoActiveAccess):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNoActiveAccess, "No active access")
	case errors.Is(err, access.ErrLookupFailed):
		logger.Error().Err(err).Msg("access_grants lookup failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeEntitlementLookupFailed, "Access lookup failed")
	default:
		logger.Error().Err(err).Msg("authorization failed")
		httperrors.RespondInternalError(w, "Internal server error")
	}
}
