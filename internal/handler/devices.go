package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/middleware"
	"github.com/autovolt/voice-bridge-go/internal/service"
)

type DeviceHandler struct {
	discovery *service.DiscoveryService
}

func NewDeviceHandler(discovery *service.DiscoveryService) *DeviceHandler {
	return &DeviceHandler{discovery: discovery}
}

func (h *DeviceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/discovery", h.Discovery)
	r.Get("/{deviceId}/status", h.Status)

	return r
}

// GET /devices/discovery
func (h *DeviceHandler) Discovery(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	discovery, err := h.discovery.Discover(r.Context(), user)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("device discovery failed")
		httputil.WriteError(w, apperrors.Internal("Device discovery failed"))
		return
	}

	httputil.WriteSuccess(w, discovery)
}

// GET /devices/{deviceId}/status
func (h *DeviceHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	deviceID := chi.URLParam(r, "deviceId")
	status, err := h.discovery.DeviceStatus(r.Context(), user, deviceID)
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Str("deviceId", deviceID).Msg("device status failed")
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, status)
}
