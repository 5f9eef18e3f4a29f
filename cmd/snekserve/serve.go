package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/brensch/snekserve/agent"
	"github.com/brensch/snekserve/config"
	"github.com/brensch/snekserve/events"
	"github.com/brensch/snekserve/game"
	"github.com/brensch/snekserve/logging"
	"github.com/brensch/snekserve/server"
)

const shutdownPeriod = 5 * time.Second

var (
	flagListen        string
	flagMetricsListen string
	flagSeed          int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for Battlesnake engine requests",
	Long: `Start the HTTP server the game engine talks to.

Routes:
  GET  /        snake appearance
  POST /start   game started
  POST /move    choose the next move
  POST /end     game finished

With --metrics-listen, a second listener serves /metrics (Prometheus) and
/events (websocket feed of every start, move and end).

Examples:
  snekserve serve --listen :8000
  snekserve serve --metrics-listen 127.0.0.1:9100 --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Engine HTTP listen address (default :8000)")
	serveCmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "Metrics and event feed listen address (disabled when empty)")
	serveCmd.Flags().Int64Var(&flagSeed, "seed", 0, "Move RNG seed (0 = random)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagMetricsListen != "" {
		cfg.MetricsListen = flagMetricsListen
	}
	if cmd.Flags().Changed("seed") {
		cfg.Snake.Seed = flagSeed
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snake := agent.NewStarter(game.SnakeInfo{
		Color: cfg.Snake.Color,
		Head:  cfg.Snake.Head,
		Tail:  cfg.Snake.Tail,
	}, cfg.Snake.Seed, logger.WithPrefix("agent"))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithServerHeader(cfg.ServerHeader),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithStatusCodes(cfg.Status.InvalidJSON, cfg.Status.NoHandler),
	}

	servers := []*http.Server{}
	if cfg.MetricsListen != "" {
		hub := events.NewHub(logger.WithPrefix("events"))
		defer hub.Close()

		opts = append(opts,
			server.WithMetrics(server.NewMetrics(prometheus.DefaultRegisterer)),
			server.WithPublisher(hub),
		)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/events", hub)
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		})
	}

	router := server.New(snake, opts...)
	servers = append([]*http.Server{{
		Addr:              cfg.Listen,
		Handler:           server.LogRequests(logger, router),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}}, servers...)

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		logger.Info("listening", "addr", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("shutdown", "addr", srv.Addr, "err", serr)
		}
	}
	return err
}
