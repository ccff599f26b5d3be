package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceHandler_Command(t *testing.T) {
	path := APIPrefix + "/voice/command"

	t.Run("successful command", func(t *testing.T) {
		env := newTestEnv(t, 10)
		token := env.createSession(t, adminUser)

		rec := env.do(t, http.MethodPost, path, map[string]string{
			"command": "turn on the projector", "assistant": "alexa",
		}, requestOpts{user: adminUser, voiceToken: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		out := decodeMap(t, rec)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "dev-proj", out["matchedDeviceId"])
		assert.Equal(t, true, out["newState"])
		assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, 1, env.activity.count())

		state, err := env.inv.ReadSwitchState(context.Background(), "dev-proj", "sw1")
		require.NoError(t, err)
		assert.True(t, state)

		session, err := env.sessions.ValidateSession(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), session.CommandCount)
	})

	t.Run("offline device is a failed result and still audited", func(t *testing.T) {
		env := newTestEnv(t, 10)
		token := env.createSession(t, adminUser)

		rec := env.do(t, http.MethodPost, path, map[string]string{
			"deviceName": "Seminar Hall", "command": "turn off",
		}, requestOpts{user: adminUser, voiceToken: token})
		require.Equal(t, http.StatusOK, rec.Code)

		out := decodeMap(t, rec)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "DEVICE_OFFLINE", out["errorCode"])
		assert.Equal(t, 1, env.activity.count())
	})

	t.Run("out of scope device is not found", func(t *testing.T) {
		env := newTestEnv(t, 10)
		token := env.createSession(t, facultyUser)

		rec := env.do(t, http.MethodPost, path, map[string]string{"command": "turn on projector"},
			requestOpts{user: facultyUser, voiceToken: token})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "DEVICE_NOT_FOUND", decodeMap(t, rec)["errorCode"])
	})

	t.Run("empty command", func(t *testing.T) {
		env := newTestEnv(t, 10)
		token := env.createSession(t, adminUser)

		rec := env.do(t, http.MethodPost, path, map[string]string{}, requestOpts{user: adminUser, voiceToken: token})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MISSING_REQUIRED", decodeMap(t, rec)["code"])
		assert.Equal(t, 0, env.activity.count())
	})

	t.Run("missing voice token", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path, map[string]string{"command": "turn on projector"}, requestOpts{user: adminUser})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, 0, env.activity.count())
	})

	t.Run("revoked token", func(t *testing.T) {
		env := newTestEnv(t, 10)
		token := env.createSession(t, adminUser)
		_, err := env.sessions.RevokeSession(context.Background(), token)
		require.NoError(t, err)

		rec := env.do(t, http.MethodPost, path, map[string]string{"command": "turn on projector"},
			requestOpts{user: adminUser, voiceToken: token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "SESSION_INVALID", decodeMap(t, rec)["code"])
	})

	t.Run("rate limit short-circuits before execution", func(t *testing.T) {
		env := newTestEnv(t, 2)
		token := env.createSession(t, adminUser)
		body := map[string]string{"command": "toggle the projector"}
		opts := requestOpts{user: adminUser, voiceToken: token}

		for i := 0; i < 2; i++ {
			rec := env.do(t, http.MethodPost, path, body, opts)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := env.do(t, http.MethodPost, path, body, opts)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeMap(t, rec)["code"])
		assert.Equal(t, 2, env.activity.count())
	})
}
