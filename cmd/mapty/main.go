package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/events"
	maptymcp "github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("Mapty starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *migrateOnly {
		if cfg.Storage.Backend != config.BackendPostgres {
			log.Info("migrate-only: nothing to migrate", "backend", cfg.Storage.Backend)
			return
		}
		if err := storage.RunMigrations(cfg.Storage.Postgres.DSN(), "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		return
	}

	// Open storage
	ctx := context.Background()
	kv, err := storage.Open(ctx, storage.Options{
		Backend:        cfg.Storage.Backend,
		SQLitePath:     cfg.Storage.SQLite.Path,
		PostgresDSN:    cfg.Storage.Postgres.DSN(),
		MigrationsPath: "migrations",
	})
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	log.Info("storage opened", "backend", cfg.Storage.Backend)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Change events
	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		publisher = events.NewDispatcher(
			events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			cfg.Kafka.QueueSize, cfg.Kafka.Timeout, log)
		log.Info("publishing workout events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// Tracker and headless renderers
	markers, rows := server.NewMarkerLayer(), server.NewRowList()
	var locator view.StaticLocator
	if c := cfg.Map.Center; c != nil {
		locator.At = &models.Coordinates{Lat: c.Lat, Lng: c.Lng}
	}
	sync := view.New(view.Deps{
		Store:     tracker.New(kv, m, log),
		Map:       markers,
		List:      rows,
		Locator:   locator,
		Notifier:  view.NewNotifier(cfg.Notify.TTL),
		Publisher: publisher,
		Metrics:   m,
		Log:       log,
		Zoom:      cfg.Map.Zoom,
	})
	if err := sync.Start(ctx); err != nil {
		if !errors.Is(err, view.ErrGeolocationUnavailable) {
			log.Error("failed to start tracker", "error", err)
			os.Exit(1)
		}
		log.Warn("map disabled: set map.center to enable it")
	}

	// Create server
	srv := server.New(server.Deps{
		Sync:     sync,
		Map:      markers,
		List:     rows,
		Gatherer: reg,
		APIKey:   cfg.Auth.APIKey,
		Log:      log,
	})
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(maptymcp.New(maptymcp.LocalSource{Sync: sync}, Version, log)))

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
