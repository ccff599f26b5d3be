package middleware

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/service"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

// RateLimitMiddleware applies the fixed-window budget to the voice session
// on the request. It must run after VoiceSessionMiddleware.
type RateLimitMiddleware struct {
	limiter *service.RateLimiter
}

func NewRateLimitMiddleware(limiter *service.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := GetVoiceSession(r.Context())
		if session == nil {
			httputil.WriteError(w, apperrors.SessionInvalid())
			return
		}

		decision, err := m.limiter.Allow(r.Context(), session.Token)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeRateLimitExceeded {
				retryAfter := apperrors.RetryAfterSeconds(decision.RetryAfter(m.limiter.Now()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().Str("userId", session.UserID).Msg("voice rate limit exceeded")
				audit.LogFromRequest(r, audit.Event{
					Type:   audit.EventRateLimitExceed,
					UserID: session.UserID,
					Details: map[string]interface{}{
						"token":      util.MaskToken(session.Token),
						"limit":      decision.Limit,
						"retryAfter": retryAfter,
					},
				})
			}
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
