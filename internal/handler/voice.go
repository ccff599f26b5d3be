package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/middleware"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/service"
)

type VoiceHandler struct {
	voiceService *service.VoiceService
}

func NewVoiceHandler(voiceService *service.VoiceService) *VoiceHandler {
	return &VoiceHandler{voiceService: voiceService}
}

// Routes must be mounted behind the identity, voice session and rate limit
// middlewares, in that order.
func (h *VoiceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/command", h.Command)
	return r
}

// POST /voice/command
// Resolution and execution failures are a success:false result with 200 OK.
func (h *VoiceHandler) Command(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(ctx)
	session := middleware.GetVoiceSession(ctx)
	if user == nil || session == nil {
		httputil.WriteError(w, apperrors.SessionInvalid())
		return
	}

	var req model.VoiceCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.voiceService.Submit(ctx, user, session, req, service.RequestMeta{
		IP:        audit.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
