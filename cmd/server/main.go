// finsage - personal finance assistant dispatch server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finsage/finsage/internal/agent"
	"github.com/finsage/finsage/internal/api"
	"github.com/finsage/finsage/internal/channel"
	"github.com/finsage/finsage/internal/config"
	"github.com/finsage/finsage/internal/identity"
	"github.com/finsage/finsage/internal/middleware"
	"github.com/finsage/finsage/internal/profile"
	"github.com/finsage/finsage/internal/session"
	"github.com/finsage/finsage/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Keyword rules: built-in defaults unless an override file is configured.
	rules := agent.DefaultRuleSet()
	if cfg.KeywordRulesPath != "" {
		rules, err = agent.LoadRuleSet(cfg.KeywordRulesPath)
		if err != nil {
			slog.Error("Failed to load keyword rules", "path", cfg.KeywordRulesPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Keyword rules loaded", "path", cfg.KeywordRulesPath, "rules", len(rules.Rules))
	}

	// Initialize services.
	profiles := profile.NewProvider(repo)
	sessions := session.NewManager(repo)
	sessions.Hydrate(context.Background())

	registry := agent.NewRegistry()
	broadcast := agent.NewTraceBroadcaster()
	generator := agent.NewTemplateGenerator(cfg.Generation.MinDelay, cfg.Generation.MaxDelay)
	dispatcher := agent.NewDispatcher(
		registry,
		agent.NewClassifier(rules),
		agent.NewGuardrail(rules),
		generator,
		sessions,
		profiles,
		broadcast,
	)

	var sender channel.Sender = channel.LogSender{}
	if cfg.Channel.OutboundURL != "" {
		sender = channel.NewHTTPSender(cfg.Channel.OutboundURL, cfg.Channel.Token)
	} else {
		slog.Info("No outbound channel endpoint configured, using log-only sender")
	}
	channelService := channel.NewService(channel.NewExecutor(repo, profiles))

	// Initialize handlers.
	agentHandler := agent.NewHandler(dispatcher, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	conversationHandler := api.NewHandler(sessions)
	channelHandler := channel.NewHandler(channelService, sender)
	streamHandler := agent.NewStreamHandler(broadcast, sessions, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(profiles, cfg.IsDevelopment()))

	agentHandler.RegisterRoutes(r)
	conversationHandler.RegisterRoutes(r)
	channelHandler.RegisterRoutes(r)

	// WebSocket endpoint for live routing-step events.
	r.Get("/ws/chat", streamHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Scheduled digests.
	if cfg.Digest.Enabled {
		digest := channel.NewDigestJob(repo, profiles, sender, cfg.Digest.SendDelay)
		cronEngine := cron.New()
		if err := digest.Schedule(cronEngine, cfg.Digest.Schedule); err != nil {
			slog.Error("Failed to schedule digest", "error", err)
			os.Exit(1)
		}
		cronEngine.Start()
		defer cronEngine.Stop()
		slog.Info("Digest scheduler started", "schedule", cfg.Digest.Schedule)
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
