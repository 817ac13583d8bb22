package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

const (
	questionID = "6f1c1d2e-4a55-4f5e-9d7b-1b2c3d4e5f60"
	versionID  = "0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "service-key", srv.Client())
}

func mustUUID(t *testing.T, s string) pgtype.UUID {
	t.Helper()
	id, err := queries.ParseUUID(s)
	require.NoError(t, err)
	return id
}

func TestListActiveGrantsByUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/access_grants", r.URL.Path)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "eq.true", r.URL.Query().Get("active"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		_, _ = io.WriteString(w, `[
			{"id":"`+questionID+`","user_id":"user-1","product_id":"gold","active":true,"expires_at":null,"created_at":"2024-01-01T00:00:00+00:00"},
			{"id":"`+versionID+`","user_id":"user-1","product_id":null,"active":true,"expires_at":"2030-01-01T00:00:00Z","created_at":"2024-02-01T00:00:00Z"}
		]`)
	})

	grants, err := client.ListActiveGrantsByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "user-1", grants[0].UserID)
	assert.False(t, grants[0].ExpiresAt.Valid)
	assert.True(t, grants[1].ExpiresAt.Valid)
	assert.False(t, grants[1].ProductID.Valid)
}

func TestListPublishedVersionsSendsWindow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/rest/v1/question_versions", r.URL.Path)
		assert.Equal(t, "eq.true", q.Get("is_published"))
		assert.Equal(t, "published_at.desc,id.asc", q.Get("order"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "40", q.Get("offset"))
		_, _ = io.WriteString(w, `[{"id":"`+versionID+`","question_id":"`+questionID+`","version_number":2,"title":"T","content_json":{"stem":"x"},"options_json":null,"explanation":null,"is_published":true,"published_at":"2024-03-01T10:00:00Z","created_by":null,"created_at":"2024-03-01T09:00:00Z"}]`)
	})

	versions, err := client.ListPublishedVersions(context.Background(), queries.ListPublishedVersionsParams{Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, int32(2), versions[0].VersionNumber)
	assert.JSONEq(t, `{"stem":"x"}`, string(versions[0].ContentJSON))
	assert.Equal(t, versionID, queries.FormatUUID(versions[0].ID))
}

func TestCreateQuestionWithVersionCallsRPC(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/create_question_with_version", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MEDIUM", body["p_difficulty"])
		assert.Equal(t, "Capital of France", body["p_title"])
		assert.Nil(t, body["p_slug"])
		assert.Nil(t, body["p_options_json"])

		_, _ = io.WriteString(w, `{"question":{"id":"`+questionID+`","difficulty":"MEDIUM"},"version":{"id":"`+versionID+`","question_id":"`+questionID+`","version_number":1,"title":"Capital of France","content_json":{},"is_published":false}}`)
	})

	row, err := client.CreateQuestionWithVersion(context.Background(), queries.CreateQuestionWithVersionParams{
		Difficulty:  "MEDIUM",
		Title:       "Capital of France",
		ContentJSON: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, questionID, queries.FormatUUID(row.Question.ID))
	assert.Equal(t, int32(1), row.Version.VersionNumber)
	assert.False(t, row.Version.IsPublished)
}

func TestPublishVersionMapsMissingRowToNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/publish_question_version", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"P0002","message":"version not found for question"}`)
	})

	_, err := client.PublishVersion(context.Background(), queries.PublishVersionParams{
		QuestionID: mustUUID(t, questionID),
		VersionID:  mustUUID(t, versionID),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, queries.ErrNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "P0002", apiErr.Code)
}

func TestUpstreamFailureIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	})

	_, err := client.ListActiveGrantsByUser(context.Background(), "user-1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
	assert.False(t, errors.Is(err, queries.ErrNotFound))
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/", r.URL.Path)
		_, _ = io.WriteString(w, `{}`)
	})
	require.NoError(t, client.Ping(context.Background()))
}
