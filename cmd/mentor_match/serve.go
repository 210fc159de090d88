package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/mentor-match/internal/config"
	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/observability"
	"github.com/jonathan/mentor-match/internal/server"
	"github.com/jonathan/mentor-match/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the chat session endpoints, /health and /metrics.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if m, ok := store.(migrator); ok {
		applied, err := m.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		if applied > 0 {
			logger.Info("applied migrations", "count", applied)
		}
	}

	completer, closeCompleter, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCompleter() //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	ctrl, err := newController(cfg, completer, store, logger, conversation.WithObserver(metrics))
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:       cfg.Port,
		JWT:        jwtCfg,
		RateLimit:  ratelimit.LoadConfig(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Controller: ctrl,
		Health:     store,
		Metrics:    metrics,
		Gatherer:   registry,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting server", "port", cfg.Port)
	return srv.Run(ctx)
}
