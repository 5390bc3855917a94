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

	"go.uber.org/multierr"
	"tailscale.com/tsnet"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/metrics"
	"github.com/claude/setlog/internal/server"
	"github.com/claude/setlog/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("setlog starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.CheckServer()
	}
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *migrateOnly {
		if cfg.Database.Driver == config.DriverPostgres {
			if err := storage.RunMigrations(cfg.Database.DSN(), cfg.Database.Migrations); err != nil {
				log.Error("migration failed", "error", err)
				os.Exit(1)
			}
		}
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	repo, err := storage.Open(ctx, cfg.Database, false, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	srv := server.New(repo, metrics.New(), cfg.Auth.APIKey, log)

	// Listen on the tailnet or plain TCP.
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			logErrors(log, "close error", repo.Close())
			os.Exit(1)
		}
		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			logErrors(log, "close error", multierr.Combine(tsServer.Close(), repo.Close()))
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			logErrors(log, "close error", repo.Close())
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = httpSrv.Shutdown(shutdownCtx)
	if tsServer != nil {
		err = multierr.Append(err, tsServer.Close())
	}
	err = multierr.Append(err, repo.Close())
	if logErrors(log, "shutdown error", err) {
		os.Exit(1)
	}
	log.Info("server stopped")
}

// logErrors logs each error combined in err and reports whether there were any.
func logErrors(log *slog.Logger, msg string, err error) bool {
	for _, e := range multierr.Errors(err) {
		log.Error(msg, "error", e)
	}
	return err != nil
}
