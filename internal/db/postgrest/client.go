// Package postgrest talks to the hosted database through its REST facade.
// It returns the same row types as internal/db/queries so either backend can
// sit behind the repositories.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

// APIError carries the REST facade's error body. It is logged, never returned
// to HTTP callers verbatim.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, e.Message)
}

// Client is a minimal PostgREST client authenticated with the service key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/rest/v1",
		apiKey:     serviceKey,
		httpClient: httpClient,
	}
}

// Ping fetches the schema root to confirm the facade answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/", nil, nil, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) rpc(ctx context.Context, fn string, args any, out any) error {
	return c.do(ctx, http.MethodPost, "/rpc/"+fn, nil, args, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	// P0002 is raised by the write functions when the target row is absent.
	if resp.StatusCode == http.StatusNotFound || apiErr.Code == "P0002" {
		return errors.Join(queries.ErrNotFound, apiErr)
	}
	return apiErr
}
