package middleware

import (
	"context"
	"net/http"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/service"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

const VoiceTokenHeader = "X-Voice-Token"

func GetVoiceSession(ctx context.Context) *model.VoiceSession {
	if session, ok := ctx.Value(SessionContextKey).(*model.VoiceSession); ok {
		return session
	}
	return nil
}

// VoiceSessionMiddleware requires a live voice session owned by the
// identity-authenticated user. It must run after IdentityMiddleware.
type VoiceSessionMiddleware struct {
	sessions *service.SessionService
}

func NewVoiceSessionMiddleware(sessions *service.SessionService) *VoiceSessionMiddleware {
	return &VoiceSessionMiddleware{sessions: sessions}
}

func (m *VoiceSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
			return
		}

		token := r.Header.Get(VoiceTokenHeader)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Voice token required"))
			return
		}

		session, err := m.sessions.ValidateSession(r.Context(), token)
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeSessionInvalid {
				audit.LogFromRequest(r, audit.Event{
					Type:    audit.EventSessionInvalid,
					UserID:  user.ID,
					Details: map[string]interface{}{"token": util.MaskToken(token)},
				})
			}
			httputil.WriteError(w, err)
			return
		}

		// Another user's token is reported exactly like an unknown one.
		if session.UserID != user.ID {
			audit.LogFromRequest(r, audit.Event{
				Type:   audit.EventSessionInvalid,
				UserID: user.ID,
				Details: map[string]interface{}{
					"token":  util.MaskToken(token),
					"reason": "owner mismatch",
				},
			})
			httputil.WriteError(w, apperrors.SessionInvalid())
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
