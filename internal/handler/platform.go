package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/platform"
	"github.com/autovolt/voice-bridge-go/internal/service"
)

// PlatformHandler serves one third-party smart-home channel. Platform
// requests carry no user identity, so they act on the full inventory.
// Every response, including failures, uses the channel's own schema.
type PlatformHandler struct {
	adapter   platform.Adapter
	voice     *service.VoiceService
	discovery *service.DiscoveryService
}

func NewPlatformHandler(
	adapter platform.Adapter,
	voice *service.VoiceService,
	discovery *service.DiscoveryService,
) *PlatformHandler {
	return &PlatformHandler{
		adapter:   adapter,
		voice:     voice,
		discovery: discovery,
	}
}

func (h *PlatformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channel := h.adapter.Channel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, h.adapter.FormatError(&platform.Inbound{}, apperrors.PayloadTooLarge()))
			return
		}
		writeJSON(w, http.StatusBadRequest, h.adapter.FormatError(&platform.Inbound{}, apperrors.ValidationError("Failed to read request body")))
		return
	}

	in, err := h.adapter.ParseInbound(body)
	if err != nil {
		log.Warn().Err(err).Str("channel", string(channel)).Msg("rejected platform request")
		status := http.StatusInternalServerError
		if platform.IsParseError(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, h.adapter.FormatError(in, err))
		return
	}

	log.Info().
		Str("channel", string(channel)).
		Str("kind", string(in.Kind)).
		Int("commands", len(in.Commands)).
		Msg("platform request")

	switch in.Kind {
	case platform.KindDiscovery:
		devices, err := h.discovery.Devices(ctx, model.FullScope())
		if err != nil {
			h.internalError(w, in, err)
			return
		}
		writeJSON(w, http.StatusOK, h.adapter.FormatDiscovery(in, devices))

	case platform.KindDisconnect:
		log.Info().Str("channel", string(channel)).Msg("platform account unlinked")
		writeJSON(w, http.StatusOK, h.adapter.FormatResult(in, nil))

	default:
		// Earlier commands may already have switched hardware, so one
		// failing command must not hide their outcomes.
		outcomes := make([]platform.Outcome, 0, len(in.Commands))
		var lastErr error
		failed := 0
		for _, cmd := range in.Commands {
			result, err := h.voice.Execute(ctx, cmd, model.FullScope())
			if err != nil {
				log.Error().Err(err).
					Str("channel", string(channel)).
					Str("endpointId", cmd.EndpointID).
					Msg("platform command failed")
				lastErr = err
				failed++
				result = internalResult()
			}
			outcomes = append(outcomes, platform.Outcome{Command: cmd, Result: result})
		}
		if failed > 0 && failed == len(outcomes) {
			h.internalError(w, in, lastErr)
			return
		}
		writeJSON(w, http.StatusOK, h.adapter.FormatResult(in, outcomes))
	}
}

func internalResult() *model.Result {
	return &model.Result{
		Success:   false,
		Message:   "Request failed",
		ErrorKind: string(apperrors.KindInternal),
		ErrorCode: string(apperrors.ErrCodeInternal),
	}
}

func (h *PlatformHandler) internalError(w http.ResponseWriter, in *platform.Inbound, err error) {
	log.Error().Err(err).Str("channel", string(h.adapter.Channel())).Msg("platform request failed")
	writeJSON(w, http.StatusInternalServerError, h.adapter.FormatError(in, apperrors.Internal("Request failed")))
}
