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

	fghttp "github.com/fraudgate/fraudgate/internal/adapter/http"
	"github.com/fraudgate/fraudgate/internal/adapter/litellm"
	"github.com/fraudgate/fraudgate/internal/adapter/mcp"
	fgnats "github.com/fraudgate/fraudgate/internal/adapter/nats"
	"github.com/fraudgate/fraudgate/internal/adapter/otel"
	"github.com/fraudgate/fraudgate/internal/adapter/postgres"
	"github.com/fraudgate/fraudgate/internal/adapter/ristretto"
	"github.com/fraudgate/fraudgate/internal/adapter/ws"
	"github.com/fraudgate/fraudgate/internal/config"
	"github.com/fraudgate/fraudgate/internal/logger"
	"github.com/fraudgate/fraudgate/internal/middleware"
	"github.com/fraudgate/fraudgate/internal/port/capability"
	"github.com/fraudgate/fraudgate/internal/service"
)

const version = "0.1.0"

func main() {
	var err error
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "admin":
			err = runAdmin(os.Args[2:])
		case "review":
			err = runReview(os.Args[2:])
		case "version", "--version":
			fmt.Println("fraudgate " + version)
		case "help", "--help":
			printHelp()
		default:
			printHelp()
			err = fmt.Errorf("unknown command: %s", os.Args[1])
		}
	} else {
		err = runServe()
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: fraudgate [command]

Commands:
  (none)    Start the HTTP server
  review    Run an interactive review session in the terminal
  admin     Manage reviewer accounts
  version   Print the version
  help      Show this help message
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"capability_backend", cfg.Capabilities.Backend,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	var metrics *otel.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// --- Infrastructure ---
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

	bus, err := fgnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Capability backend ---
	litellm.Register()
	caps, err := capability.New(cfg.Capabilities.Backend, capabilityConfig(cfg))
	if err != nil {
		return fmt.Errorf("capabilities: %w", err)
	}

	// --- Services ---
	store := postgres.NewStore(pool)
	hub := ws.NewHub()

	gateway := service.NewGatewayService(caps.MLScorer, caps.RuleScorer, cfg.Capabilities.AssessTimeout, metrics)
	tools := service.NewToolsService(store, cache, cfg.Cache.LookupTTL, metrics)
	decider := service.NewDecisionService(caps.Decider, cfg.Capabilities.DecideTimeout)
	explainer := service.NewExplanationService(caps.Explainer, cfg.Capabilities.ExplainTimeout)
	sessions := service.NewSessionService(caps.Dialogue, tools, store, hub, metrics)
	authSvc := service.NewAuthService(store)
	orch := service.NewOrchestrator(gateway, decider, explainer, sessions, store, bus, metrics)

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "fraudgate",
			Version: version,
		}, mcp.ServerDeps{Lookup: store})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(stopCtx)
		}()
		slog.Info("mcp server listening", "addr", cfg.MCP.Addr)
	}

	// --- HTTP ---
	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)

	handlers := &fghttp.Handlers{
		Orchestrator: orch,
		Tools:        tools,
		Auth:         authSvc,
		Results:      store,
		LiteLLM:      llmClient,
		Bus:          bus,
	}

	r := chi.NewRouter()

	r.Use(fghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(fghttp.SecurityHeaders)
	r.Use(fghttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))

	r.Get("/health", healthHandler(cfg, bus))
	r.Get("/ws", hub.HandleWS)

	fghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // review turns wait on model round-trips
		IdleTimeout:       120 * time.Second,
	}

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

// capabilityConfig flattens the capability section into the backend config map.
func capabilityConfig(cfg *config.Config) map[string]string {
	return map[string]string{
		"url":                  cfg.LiteLLM.URL,
		"master_key":           cfg.LiteLLM.MasterKey,
		"ml_model":             cfg.Capabilities.MLModel,
		"rule_model":           cfg.Capabilities.RuleModel,
		"decision_model":       cfg.Capabilities.DecisionModel,
		"explain_model":        cfg.Capabilities.ExplainModel,
		"dialogue_model":       cfg.Capabilities.DialogueModel,
		"breaker_max_failures": fmt.Sprintf("%d", cfg.Breaker.MaxFailures),
		"breaker_timeout":      cfg.Breaker.Timeout.String(),
	}
}

// healthHandler reports the service health and its wiring.
func healthHandler(cfg *config.Config, bus interface{ IsConnected() bool }) http.HandlerFunc {
	type healthStatus struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		NATS    string `json:"nats"`
		LiteLLM string `json:"litellm"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		natsStatus := "disconnected"
		if bus.IsConnected() {
			natsStatus = "connected"
		}
		status := healthStatus{
			Status:  "ok",
			Version: version,
			NATS:    natsStatus,
			LiteLLM: cfg.LiteLLM.URL,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
