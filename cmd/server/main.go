// Macro Maker - meal-plan generation server
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

	"github.com/ashureev/macro-maker/internal/api"
	"github.com/ashureev/macro-maker/internal/config"
	"github.com/ashureev/macro-maker/internal/form"
	"github.com/ashureev/macro-maker/internal/llm"
	"github.com/ashureev/macro-maker/internal/middleware"
	"github.com/ashureev/macro-maker/internal/planner"
	"github.com/ashureev/macro-maker/internal/prompt"
	"github.com/ashureev/macro-maker/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"prompt_mode", cfg.Prompt.Mode,
		"form_units", cfg.FormUnits,
		"model", cfg.Upstream.Model,
	)
	if !cfg.HasCredential() {
		slog.Warn("OPENAI_KEY not set, plan requests will fail until it is configured")
	}

	// Initialize dependencies.
	prompts := prompt.NewBuilder(cfg.Prompt.Mode, cfg.Prompt.TemplatePath)
	if prompts.Mode() == prompt.ModeTemplate {
		if err := prompts.CheckTemplate(); err != nil {
			slog.Warn("Prompt template not readable yet", "path", cfg.Prompt.TemplatePath, "error", err)
		}
	}

	client := llm.NewClient(llm.ClientConfig{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Model:   cfg.Upstream.Model,
		Timeout: cfg.Upstream.Timeout,
	}, logger)

	exchanges, err := llm.NewExchangeLogger(llm.ExchangeLogConfig{
		Enabled:   cfg.ExchangeLog.Enabled,
		Dir:       cfg.ExchangeLog.Dir,
		QueueSize: cfg.ExchangeLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize exchange logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := exchanges.Close(); closeErr != nil {
			slog.Error("Failed to close exchange logger", "error", closeErr)
		}
	}()

	// Initialize services.
	planService := planner.NewService(client, prompts, exchanges, planner.Config{
		CredentialConfigured: cfg.HasCredential(),
		Model:                client.Model(),
	}, logger)

	tmpl, err := web.Templates()
	if err != nil {
		slog.Error("Failed to load form templates", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(planService, cfg)
	healthHandler := api.NewHealthHandlerWithConfig(cfg, prompts)
	nutritionHandler := api.NewNutritionHandler(baseHandler)
	formHandler := form.NewHandler(planService, cfg.FormUnits, tmpl)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)
	nutritionHandler.RegisterRoutes(r)
	formHandler.RegisterRoutes(r)

	// Embedded form assets.
	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler()))

	// Create server.
	// WriteTimeout is left at 0 when the upstream call is unbounded.
	writeTimeout := time.Duration(0)
	if cfg.Upstream.Timeout > 0 {
		writeTimeout = cfg.Upstream.Timeout + 10*time.Second
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
