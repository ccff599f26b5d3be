package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/middleware"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/service"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// Routes must be mounted behind the identity middleware.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/create", h.CreateSession)
	r.Get("/list", h.ListSessions)
	r.Delete("/revoke", h.RevokeSession)
	r.Post("/revoke-all", h.RevokeAllSessions)

	return r
}

// POST /session/create
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	if !user.CanUseVoice() {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventForbidden,
			UserID:  user.ID,
			Details: map[string]interface{}{"action": "voice_session_create"},
		})
		httputil.WriteError(w, apperrors.Forbidden("Voice control is not enabled for your account"))
		return
	}

	created, err := h.sessionService.CreateSession(r.Context(), user)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to create voice session")
		httputil.WriteError(w, apperrors.Internal("Failed to create voice session"))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventSessionCreate,
		UserID:  user.ID,
		Details: map[string]interface{}{"token": util.MaskToken(created.Token)},
	})
	log.Info().Str("userId", user.ID).Str("userName", user.Name).Msg("voice session created")

	httputil.WriteSuccess(w, created)
}

// GET /session/list
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	sessions, err := h.sessionService.ListSessions(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to list voice sessions")
		httputil.WriteError(w, apperrors.Internal("Failed to list voice sessions"))
		return
	}
	if sessions == nil {
		sessions = []*model.VoiceSession{}
	}

	httputil.WriteSuccess(w, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// DELETE /session/revoke
func (h *SessionHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var req struct {
		VoiceToken string `json:"voiceToken"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.VoiceToken == "" {
		httputil.WriteError(w, apperrors.MissingRequired("voiceToken"))
		return
	}

	revoked, err := h.sessionService.RevokeOwnedSession(r.Context(), user.ID, req.VoiceToken)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to revoke voice session")
		httputil.WriteError(w, apperrors.Internal("Failed to revoke voice session"))
		return
	}

	message := "Voice session not found"
	if revoked {
		message = "Voice session revoked"
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventSessionRevoke,
			UserID:  user.ID,
			Details: map[string]interface{}{"token": util.MaskToken(req.VoiceToken)},
		})
	}

	httputil.WriteSuccess(w, map[string]any{
		"revoked": revoked,
		"message": message,
	})
}

// POST /session/revoke-all
func (h *SessionHandler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	count, err := h.sessionService.RevokeAllSessions(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to revoke voice sessions")
		httputil.WriteError(w, apperrors.Internal("Failed to revoke voice sessions"))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventSessionRevokeAll,
		UserID:  user.ID,
		Details: map[string]interface{}{"count": count},
	})

	httputil.WriteSuccess(w, map[string]any{
		"revokedCount": count,
		"message":      fmt.Sprintf("Revoked %d voice session(s)", count),
	})
}
