package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

const WebhookSignatureHeader = "X-Webhook-Signature"

// SignatureMiddleware checks a hex HMAC-SHA256 of the raw body. Rejections
// use the webhook's own {success:false, error} shape.
type SignatureMiddleware struct {
	secret string
}

func NewSignatureMiddleware(secret string) *SignatureMiddleware {
	return &SignatureMiddleware{secret: secret}
}

func (m *SignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(WebhookSignatureHeader)
		if signature == "" {
			m.reject(w, r, "missing signature")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("signature middleware: failed to read body")
			writeWebhookError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := util.HmacSHA256(m.secret, string(body))
		if !util.ConstantTimeEqual(computed, signature) {
			m.reject(w, r, "invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *SignatureMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	log.Warn().Str("path", r.URL.Path).Msgf("signature middleware: %s", reason)
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventSignatureFailure,
		Details: map[string]interface{}{"reason": reason},
	})
	writeWebhookError(w, http.StatusUnauthorized, "Invalid signature")
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
