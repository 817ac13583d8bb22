package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RemoteVerifier asks the identity service who owns the token.
type RemoteVerifier struct {
	userURL    string
	apiKey     string
	httpClient *http.Client
}

type identityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewRemoteVerifier(identityURL, anonKey string, httpClient *http.Client) *RemoteVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{
		userURL:    strings.TrimSuffix(identityURL, "/") + "/auth/v1/user",
		apiKey:     anonKey,
		httpClient: httpClient,
	}
}

// Verify calls GET /auth/v1/user with the caller's token.
func (v *RemoteVerifier) Verify(ctx context.Context, credential string) (Principal, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: identity request: %v", ErrInvalidCredential, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: identity service returned %d", ErrInvalidCredential, resp.StatusCode)
	}

	var user identityUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("%w: decode identity user: %v", ErrInvalidCredential, err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: identity user has no id", ErrInvalidCredential)
	}
	return Principal(user.ID), nil
}
