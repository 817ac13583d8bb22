package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier validates tokens against the issuer's published keys.
type OIDCVerifier struct {
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

// NewOIDCVerifier runs provider discovery once. An empty audience skips the aud check.
func NewOIDCVerifier(ctx context.Context, issuerURL, audience string, httpClient *http.Client) (*OIDCVerifier, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          audience,
			SkipClientIDCheck: audience == "",
		}),
		httpClient: httpClient,
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, credential string) (Principal, error) {
	if v.httpClient != nil {
		ctx = oidc.ClientContext(ctx, v.httpClient)
	}
	token, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if token.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}
	return Principal(token.Subject), nil
}
