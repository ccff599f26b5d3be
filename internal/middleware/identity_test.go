package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

const testSecret = "test-identity-secret-with-enough-length"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims IdentityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() IdentityClaims {
	return IdentityClaims{
		Name:          "Dr. Rao",
		Role:          "faculty",
		AssignedRooms: []string{"A101"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestIdentityMiddleware(t *testing.T) {
	m := NewIdentityMiddleware(testSecret)

	var seen *model.User
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token sets user", func(t *testing.T) {
		seen = nil
		rec := serve("Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "user-1", seen.ID)
		assert.Equal(t, "Dr. Rao", seen.Name)
		assert.Equal(t, []string{"A101"}, seen.AssignedRooms)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperrors.ErrCodeUnauthorized, decodeError(t, rec).Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := serve("Bearer " + signToken(t, jwt.SigningMethodHS256, "another-secret", validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("other algorithm", func(t *testing.T) {
		rec := serve("Bearer " + signToken(t, jwt.SigningMethodHS384, testSecret, validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		rec := serve("Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, claims))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without subject", func(t *testing.T) {
		claims := validClaims()
		claims.Subject = ""
		rec := serve("Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, claims))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
