package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/revisant/dictum/internal/adapter/docgen"
	dhttp "github.com/revisant/dictum/internal/adapter/http"
	dnats "github.com/revisant/dictum/internal/adapter/nats"
	dotel "github.com/revisant/dictum/internal/adapter/otel"
	"github.com/revisant/dictum/internal/adapter/panel"
	"github.com/revisant/dictum/internal/adapter/postgres"
	"github.com/revisant/dictum/internal/adapter/ristretto"
	"github.com/revisant/dictum/internal/adapter/ws"
	"github.com/revisant/dictum/internal/config"
	"github.com/revisant/dictum/internal/domain/gate"
	"github.com/revisant/dictum/internal/domain/stage"
	"github.com/revisant/dictum/internal/logger"
	"github.com/revisant/dictum/internal/middleware"
	"github.com/revisant/dictum/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			slog.Error("migrate", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"materiality_threshold", cfg.Workflow.MaterialityThreshold,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := dotel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	metrics, err := dotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS JetStream
	queue, err := dnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() {
		// Drain lets in-flight messages finish; fall back to a hard close.
		if err := queue.Drain(); err != nil {
			slog.Warn("nats drain", "error", err)
			_ = queue.Close()
		}
	}()

	// Score memo cache
	memo, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer memo.Close()

	// --- Workflow wiring ---
	roster, err := stage.LoadRoster(cfg.Workflow.RosterFile)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	slog.Info("stage roster loaded", "stages", roster.Len())

	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	ledgerStore := postgres.NewLedgerStore(pool)
	gates := gate.NewEvaluator(cfg.Workflow.MaterialityThreshold)

	scoreSvc := service.NewScoreService(ledgerStore, memo, cfg.Cache.TTL)
	defenseSvc := service.NewDefenseService(store, ledgerStore)
	workflowSvc := service.NewWorkflowService(
		store, ledgerStore, roster, gates, scoreSvc, defenseSvc, queue, metrics)
	deliberationSvc := service.NewDeliberationService(ledgerStore)

	// WebSocket fan-out rides on the queue so every instance forwards its
	// peers' events too.
	relay := service.NewEventRelay(queue, hub)
	stopRelay, err := relay.Start(ctx)
	if err != nil {
		return fmt.Errorf("event relay: %w", err)
	}
	defer stopRelay()

	panelClient := panel.NewClient(cfg.Collaborator.URL, cfg.Collaborator.Timeout)
	docgenClient := docgen.NewClient(cfg.Docgen.URL, cfg.Docgen.Timeout)
	reviewSvc := service.NewReviewService(
		workflowSvc, panelClient, docgenClient, cfg.Collaborator.MaxConcurrent)

	// --- HTTP ---
	handlers := &dhttp.Handlers{
		Workflow:      workflowSvc,
		Reviews:       reviewSvc,
		Deliberations: deliberationSvc,
		Scores:        scoreSvc,
		Defense:       defenseSvc,
	}

	r := chi.NewRouter()

	r.Use(dhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(dhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	// Reviews block on the collaborator panel; the timeout must outlive it.
	r.Use(chimw.Timeout(cfg.Collaborator.Timeout + 30*time.Second))
	r.Use(middleware.Scope)
	if cfg.Rate.RequestsPerSecond > 0 {
		// After Scope: authenticated actors are limited individually.
		rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
		defer rl.StartCleanup(time.Minute, 10*time.Minute)()
		r.Use(rl.Handler)
	}
	r.Use(dotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/health", healthHandler(queue, pool.Ping))
	r.Get("/ws", hub.HandleWS)

	dhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Collaborator.Timeout + 60*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports the liveness of the service and its backing stores.
func healthHandler(queue *dnats.Queue, pingDB func(context.Context) error) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", NATS: "ok"}

		if err := pingDB(r.Context()); err != nil {
			status.Status = "degraded"
			status.Postgres = "unreachable"
		}
		if !queue.IsConnected() {
			status.Status = "degraded"
			status.NATS = "disconnected"
		}

		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
