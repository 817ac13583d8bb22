package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/config"
)

// Principal identifies an authenticated caller for the lifetime of one request.
type Principal string

var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

const bearerPrefix = "Bearer "

// TokenVerifier turns a bearer credential into a Principal.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (Principal, error)
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingCredential
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// NewVerifier builds the verifier selected by AUTH_VERIFIER_MODE.
func NewVerifier(ctx context.Context, cfg *config.App, httpClient *http.Client, logger zerolog.Logger) (TokenVerifier, error) {
	switch cfg.Auth.VerifierMode {
	case config.VerifierRemote:
		return NewRemoteVerifier(cfg.Identity.URL, cfg.Identity.AnonKey, httpClient), nil
	case config.VerifierSecret:
		return NewSecretVerifier([]byte(cfg.Identity.JWTSecret)), nil
	case config.VerifierOIDC:
		return NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuerURL, cfg.Auth.OIDCAudience, httpClient)
	case config.VerifierTrustedDecode:
		logger.Warn().Msg("token signatures are NOT verified (AUTH_VERIFIER_MODE=trusted_decode)")
		return TrustedDecodeVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown verifier mode %q", cfg.Auth.VerifierMode)
	}
}
