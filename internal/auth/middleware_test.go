package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
)

const adminToken = "correct-horse-battery-staple"

func guardedHandler(t *testing.T, hash string) (http.Handler, *bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if hash != "" {
			p, ok := PrincipalFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, Principal("admin"), p)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return AdminGuard(hash, zerolog.Nop())(next), &called
}

func TestAdminGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "valid", header: "Bearer " + adminToken, status: http.StatusNoContent},
		{name: "missing", header: "", status: http.StatusUnauthorized, code: httperrors.ErrCodeMissingCredential},
		{name: "wrong", header: "Bearer nope", status: http.StatusUnauthorized, code: httperrors.ErrCodeInvalidCredential},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, called := guardedHandler(t, string(hash))
			req := httptest.NewRequest(http.MethodPost, "/admin/questions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.code == "" {
				assert.True(t, *called)
				return
			}
			assert.False(t, *called)
			var body httperrors.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

func TestAdminGuardOpenWithoutHash(t *testing.T) {
	h, called := guardedHandler(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/questions", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, *called)
}

func TestHashAdminToken(t *testing.T) {
	_, err := HashAdminToken("short")
	assert.ErrorIs(t, err, ErrTokenTooShort)

	hash, err := HashAdminToken(adminToken)
	require.NoError(t, err)
	assert.NoError(t, VerifyAdminToken(hash, adminToken))
	assert.Error(t, VerifyAdminToken(hash, adminToken+"x"))
}
