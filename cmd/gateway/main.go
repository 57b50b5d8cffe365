// Package main is the entry point for the assistant gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-gateway/internal/config"
	"github.com/capitalize-ai/assistant-gateway/internal/engine"
	"github.com/capitalize-ai/assistant-gateway/internal/gateway"
	"github.com/capitalize-ai/assistant-gateway/internal/handler"
	"github.com/capitalize-ai/assistant-gateway/internal/llm"
	"github.com/capitalize-ai/assistant-gateway/internal/middleware"
	natsclient "github.com/capitalize-ai/assistant-gateway/internal/nats"
	"github.com/capitalize-ai/assistant-gateway/internal/search"
	"github.com/capitalize-ai/assistant-gateway/internal/session"
	"github.com/capitalize-ai/assistant-gateway/internal/tool"
	"github.com/capitalize-ai/assistant-gateway/pkg/logger"
	"github.com/capitalize-ai/assistant-gateway/pkg/tracing"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting assistant gateway")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant-gateway", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS for the conversation archive
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	archive := natsclient.NewArchive(natsClient)
	if err := archive.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure archive stream", zap.Error(err))
		os.Exit(1)
	}

	// Initialize LLM client; a bad or missing credential fails here, never
	// mid-conversation
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.AnthropicAPIKey
	if provider == llm.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	}
	llmClient, err := llm.NewClient(provider, apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM client ready", zap.String("provider", llmClient.Name()))

	// Tool catalog
	searchClient := search.NewHTTPClient(cfg.SearchServiceURL, cfg.SearchServiceTimeout)
	registry := tool.NewRegistry(cfg.ToolTimeout,
		tool.NewTestFunction(),
		tool.NewSearchTool(searchClient),
	)

	eng := engine.New(llmClient, registry, cfg.MaxCompletionTokens, log)
	store := session.NewMemoryStore()

	gw := gateway.New(gateway.Config{
		SystemPrompt: cfg.SystemPrompt,
		MaxToolCalls: cfg.MaxToolCalls,
		ReadLimit:    cfg.WSReadLimit,
		PingInterval: cfg.WSPingInterval,
		WriteTimeout: cfg.WSWriteTimeout,
	}, store, eng, registry, archive, log)

	healthHandler := handler.NewHealthHandler(natsClient)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/ws", gw.HandleWS)
	})

	// WebSocket sessions outlive the write timeout, so it stays unset;
	// slow plain-HTTP responses are bounded by the handlers themselves.
	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     r,
		ReadTimeout: cfg.ServerReadTimeout,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
