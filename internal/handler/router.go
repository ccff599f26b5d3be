package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/autovolt/voice-bridge-go/internal/config"
	"github.com/autovolt/voice-bridge-go/internal/middleware"
	"github.com/autovolt/voice-bridge-go/internal/platform"
	"github.com/autovolt/voice-bridge-go/internal/service"
)

const APIPrefix = "/api/voice-assistant"

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Identity        *middleware.IdentityMiddleware
	VoiceSession    *middleware.VoiceSessionMiddleware
	RateLimit       *middleware.RateLimitMiddleware
	Signature       *middleware.SignatureMiddleware
	SecurityHeaders *middleware.SecurityHeadersMiddleware

	Sessions  *service.SessionService
	Voice     *service.VoiceService
	Discovery *service.DiscoveryService

	Google platform.Adapter
	Alexa  platform.Adapter
	Siri   platform.Adapter
}

func NewRouter(deps RouterDeps) chi.Router {
	sessionHandler := NewSessionHandler(deps.Sessions)
	voiceHandler := NewVoiceHandler(deps.Voice)
	deviceHandler := NewDeviceHandler(deps.Discovery)

	firstPartyLimit := middleware.NewBodyLimitMiddleware(config.MaxVoiceCommandBodySize)
	platformLimit := middleware.NewBodyLimitMiddleware(config.MaxPlatformBodySize)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(deps.SecurityHeaders.Handler)

	r.Get("/health", Health)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(firstPartyLimit.Handler)
			r.Use(deps.Identity.Handler)

			r.Mount("/session", sessionHandler.Routes())
			r.Mount("/devices", deviceHandler.Routes())

			r.Route("/voice", func(r chi.Router) {
				r.Use(deps.VoiceSession.Handler)
				r.Use(deps.RateLimit.Handler)
				r.Mount("/", voiceHandler.Routes())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(platformLimit.Handler)

			r.Method(http.MethodPost, "/google/action", NewPlatformHandler(deps.Google, deps.Voice, deps.Discovery))
			r.Method(http.MethodPost, "/alexa/smart-home", NewPlatformHandler(deps.Alexa, deps.Voice, deps.Discovery))
			r.With(deps.Signature.Handler).
				Method(http.MethodPost, "/siri/webhook", NewPlatformHandler(deps.Siri, deps.Voice, deps.Discovery))
		})
	})

	return r
}
