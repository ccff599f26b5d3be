package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	"github.com/autovolt/voice-bridge-go/internal/config"
	"github.com/autovolt/voice-bridge-go/internal/database"
	"github.com/autovolt/voice-bridge-go/internal/handler"
	"github.com/autovolt/voice-bridge-go/internal/inventory"
	"github.com/autovolt/voice-bridge-go/internal/jobs"
	"github.com/autovolt/voice-bridge-go/internal/middleware"
	"github.com/autovolt/voice-bridge-go/internal/platform"
	"github.com/autovolt/voice-bridge-go/internal/redis"
	"github.com/autovolt/voice-bridge-go/internal/repository"
	"github.com/autovolt/voice-bridge-go/internal/service"
	"github.com/autovolt/voice-bridge-go/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		log.Logger = log.Output(logWriter(cfg.LogFile))
	}

	if err := cfg.Validate(cfg.IsProduction()); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	sessionStore, windowStore, closeStores := openStores(cfg)
	defer closeStores()

	devices, controller, activity, closeInventory := openInventory(cfg)
	defer closeInventory()

	sessionService := service.NewSessionService(sessionStore, cfg.SessionTTL())
	rateLimiter := service.NewRateLimiter(windowStore, cfg.VoiceRateLimit, cfg.RateWindow())
	voiceService := service.NewVoiceService(
		sessionService,
		service.NewResolver(devices),
		service.NewExecutor(controller),
		activity,
	)

	google := platform.NewGoogleAdapter(platform.GoogleConfig{
		AgentUserID:  cfg.GoogleAgentUserID,
		Manufacturer: cfg.ManufacturerName,
	})
	alexa := platform.NewAlexaAdapter(platform.AlexaConfig{Manufacturer: cfg.ManufacturerName})
	siri := platform.NewSiriAdapter()
	discoveryService := service.NewDiscoveryService(devices, google, alexa, siri)

	r := handler.NewRouter(handler.RouterDeps{
		Identity:        middleware.NewIdentityMiddleware(cfg.IdentityJWTSecret),
		VoiceSession:    middleware.NewVoiceSessionMiddleware(sessionService),
		RateLimit:       middleware.NewRateLimitMiddleware(rateLimiter),
		Signature:       middleware.NewSignatureMiddleware(cfg.SiriWebhookSecret),
		SecurityHeaders: middleware.NewSecurityHeadersMiddleware(cfg.IsProduction()),
		Sessions:        sessionService,
		Voice:           voiceService,
		Discovery:       discoveryService,
		Google:          google,
		Alexa:           alexa,
		Siri:            siri,
	})

	sweepJob := jobs.NewSweepJob(cfg.SweepInterval()).
		Add("voice sessions", sessionService).
		Add("rate limit windows", rateLimiter)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Environment).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// openStores picks Redis when configured so several replicas share voice
// sessions and rate windows. Otherwise state lives in process memory.
func openStores(cfg *config.Config) (store.SessionStore, store.WindowStore, func()) {
	if cfg.RedisURL == "" {
		log.Info().Msg("using in-memory session and rate limit stores")
		return store.NewMemorySessionStore(), store.NewMemoryWindowStore(), func() {}
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	log.Info().Msg("redis connected")

	return store.NewRedisSessionStore(redisClient.Client),
		store.NewRedisWindowStore(redisClient.Client),
		func() { _ = redisClient.Close() }
}

// openInventory uses Postgres when DATABASE_URL is set and falls back to the
// YAML seed file, which keeps activity records in the log.
func openInventory(cfg *config.Config) (service.DeviceInventory, service.DeviceController, service.ActivityLogger, func()) {
	if cfg.DatabaseURL == "" {
		inv, err := inventory.LoadFile(cfg.InventoryFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.InventoryFile).Msg("failed to load inventory")
		}
		log.Info().Str("file", cfg.InventoryFile).Msg("inventory loaded")
		return inv, inv, audit.NewLogActivityStore(), func() {}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	log.Info().Msg("database connected")

	return repository.NewDeviceRepository(db.DB),
		repository.NewSwitchController(db),
		repository.NewActivityLogRepository(db.DB),
		func() { _ = db.Close() }
}

// logWriter mirrors console output into a rotated JSON log file.
func logWriter(path string) io.Writer {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    config.LogFileMaxSizeMB,
		MaxBackups: config.LogFileMaxBackups,
		MaxAge:     config.LogFileMaxAgeDays,
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, file)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
