package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magmedia/brewbuddy/internal/chat"
	"github.com/magmedia/brewbuddy/internal/config"
	"github.com/magmedia/brewbuddy/internal/metrics"
	"github.com/magmedia/brewbuddy/internal/middleware"
	"github.com/magmedia/brewbuddy/internal/persona"
	"github.com/magmedia/brewbuddy/internal/proxy"
	"github.com/magmedia/brewbuddy/internal/router"
	"github.com/magmedia/brewbuddy/internal/web"
)

func main() {
	logger := log.New(os.Stdout, "[brewbuddy] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting BrewBuddy...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Printf("Configuration loaded successfully")
	logger.Printf("Environment: %s", cfg.Env)
	logger.Printf("Port: %s", cfg.Port)

	p, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		logger.Fatalf("Failed to load persona: %v", err)
	}
	logger.Printf("Persona: %s (model %s, max_tokens %d)", p.Name, p.Model, p.MaxTokens)

	m := metrics.New()
	relay, err := proxy.New(proxy.Options{
		Endpoint: cfg.UpstreamURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.UpstreamTimeout,
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize relay: %v", err)
	}

	// The page talks to the in-process relay unless a separate one, such as
	// the CGI binary, is configured.
	var completer chat.Completer = chat.LocalCompleter{Relay: relay}
	if cfg.RelayURL != "" {
		completer = chat.NewHTTPCompleter(cfg.RelayURL, cfg.UpstreamTimeout)
		logger.Printf("Chat page uses relay at %s", cfg.RelayURL)
	}

	handler := router.New(router.Options{
		Relay:          relay,
		Metrics:        m,
		Web:            web.NewHandler(p, completer, logger),
		Logging:        middleware.NewLoggingMiddleware(logger),
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		Started:        time.Now(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("Server listening on http://0.0.0.0:%s", cfg.Port)
		logger.Println("Routes:")
		logger.Println("  GET  /health      - Health check")
		logger.Println("  GET  /metrics     - Relay statistics")
		logger.Println("  POST /api/chat    - Chat completion relay")
		logger.Println("  GET  /            - Tea brewing chat")
		logger.Println("  POST /            - Send a chat message")
		if cfg.StaticDir != "" {
			logger.Printf("  Serving static files from %s", cfg.StaticDir)
		}
		logger.Println("Press Ctrl+C to stop...")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}
	logger.Println("Server stopped gracefully")
}
