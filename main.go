package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/backend"
	"github.com/mauv0809/strategium/internal/config"
	server "github.com/mauv0809/strategium/internal/http"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/narrative"
	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/mauv0809/strategium/internal/notifier/slack"
	"github.com/mauv0809/strategium/internal/session"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open league store: %s", err)
	}
	defer func() {
		log.Info("Closing league store")
		b.Close()
	}()
	log.Info("League store initialization time recorded", "duration_ms", time.Since(startTime).Milliseconds())

	lifetime := metrics.New(b.DB)
	metricsSvc := metrics.NewService().WithLifetime(lifetime)
	metricsHandler := metrics.NewMetricsHandler()

	opts := []session.Option{
		session.WithMetrics(metricsSvc),
		session.WithNarrator(narrative.Template{}),
	}
	var n notifier.Notifier
	if cfg.SlackEnabled() {
		n = slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
		opts = append(opts, session.WithNotifier(n))
	} else {
		log.Warn("Slack is not configured, match reports will not be posted")
	}
	sessions := server.NewSessions(func() *session.Coordinator {
		return b.NewSession(opts...)
	})
	defer sessions.Close()

	var push server.PushReceiver
	if b.Remote != nil && cfg.PubSub.Subscription == "" {
		push = b.Remote
	}
	s := server.NewServer(sessions, metricsHandler, lifetime, push, n, cfg.Slack.SigningSecret)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port, "backend", cfg.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
