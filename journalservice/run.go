package journalservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/api"
	"github.com/sundaylabs/sunday-server/internal/api/recovery"
	"github.com/sundaylabs/sunday-server/internal/config"
	"github.com/sundaylabs/sunday-server/internal/factory"
	"github.com/sundaylabs/sunday-server/internal/health"
	"github.com/sundaylabs/sunday-server/internal/logger"
	"github.com/sundaylabs/sunday-server/internal/schedule"
	"github.com/sundaylabs/sunday-server/internal/store"
	"github.com/sundaylabs/sunday-server/internal/transcribe"
)

// Run starts the journal service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("journal-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("transcribe_provider", cfg.TranscribeProvider).
		Str("gemini_model", cfg.GeminiModel).
		Msg("Journal service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, transcriber, synthesizer, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	router := buildRouter(st, transcriber, synthesizer, log)

	// Start health checkers and bind service health
	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, transcribe.Transcriber, schedule.Synthesizer, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, nil, nil, err
	}

	transcriber, err := factory.NewTranscriber(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Transcription provider unavailable")
		return nil, nil, nil, err
	}

	synthesizer, err := factory.NewSynthesizer(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Schedule synthesizer unavailable")
		return nil, nil, nil, err
	}
	return st, transcriber, synthesizer, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(st store.Store, transcriber transcribe.Transcriber, synthesizer schedule.Synthesizer, log zerolog.Logger) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	// Recordings
	transcribeSvc := transcribe.NewService(st, transcriber, log)
	recordings := api.NewRecordingHandler(st, transcribeSvc, log)
	root.HandleFunc("/api/recordings", recordings.CreateRecording).Methods("POST")
	root.HandleFunc("/api/recordings", recordings.ListRecordings).Methods("GET")
	root.HandleFunc("/api/recordings", recordings.ClearRecordings).Methods("DELETE")
	root.HandleFunc("/api/recordings/{id}", recordings.GetRecording).Methods("GET")
	root.HandleFunc("/api/recordings/{id}", recordings.UpdateRecording).Methods("PATCH")
	root.HandleFunc("/api/recordings/{id}", recordings.DeleteRecording).Methods("DELETE")
	root.HandleFunc("/api/recordings/{id}/audio", recordings.GetRecordingAudio).Methods("GET")
	root.HandleFunc("/api/recordings/{id}/transcribe", recordings.TriggerTranscription).Methods("POST")

	// Schedule workflow
	scheduleSvc := schedule.NewService(st, synthesizer, log)
	schedules := api.NewScheduleHandler(scheduleSvc, log)
	root.HandleFunc("/api/schedule/synthesize", schedules.Synthesize).Methods("POST")
	root.HandleFunc("/api/schedule/pending", schedules.GetPending).Methods("GET")
	root.HandleFunc("/api/schedule/pending", schedules.Reset).Methods("DELETE")
	root.HandleFunc("/api/schedule/pending/{entryId}/approve", schedules.ApproveEntry).Methods("POST")
	root.HandleFunc("/api/schedule/pending/{entryId}/reject", schedules.RejectEntry).Methods("POST")
	root.HandleFunc("/api/schedule/pending/{entryId}/correct", schedules.CorrectEntry).Methods("POST")
	root.HandleFunc("/api/schedule/confirm", schedules.Confirm).Methods("POST")

	// Archives
	root.HandleFunc("/api/schedule/approved", schedules.ListApproved).Methods("GET")
	root.HandleFunc("/api/schedule/approved/{id}", schedules.DeleteApproved).Methods("DELETE")
	root.HandleFunc("/api/schedule/confirmed", schedules.ListConfirmed).Methods("GET")
	root.HandleFunc("/api/schedule/confirmed/{id}", schedules.GetConfirmed).Methods("GET")
	root.HandleFunc("/api/schedule/confirmed/{id}", schedules.DeleteConfirmed).Methods("DELETE")
	root.HandleFunc("/api/schedule/confirmed/{id}/insights", schedules.GetInsights).Methods("GET")
	root.HandleFunc("/api/schedule/confirmed/{id}/calendar.ics", schedules.GetCalendar).Methods("GET")

	// Health
	healthHandler := api.NewHealthHandler()
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	return root
}

// startHealthCheckers starts component checkers and service-level aggregator; binds health.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Health checkers start as unhealthy and need time to run their first probe
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
