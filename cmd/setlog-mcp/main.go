package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/setlog/internal/client"
	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/mcp"
	"github.com/claude/setlog/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	remote := flag.Bool("remote", false, "read through the REST API at client.server_url instead of the database")
	flag.Parse()

	// stdout carries the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var ds mcp.DataSource
	if *remote {
		if err := cfg.CheckClient(); err != nil {
			log.Error("invalid config", "error", err)
			os.Exit(1)
		}
		ds = client.New(cfg.Client.ServerURL, cfg.Auth.APIKey, client.Options{
			Timeout: cfg.Client.Timeout,
			Retries: cfg.Client.Retries,
		})
		log.Info("using remote data source", "server_url", cfg.Client.ServerURL)
	} else {
		if err := cfg.CheckDatabase(); err != nil {
			log.Error("invalid config", "error", err)
			os.Exit(1)
		}
		repo, err := storage.Open(context.Background(), cfg.Database, true, log)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				log.Error("close error", "error", err)
			}
		}()
		ds = repo
	}

	s := mcp.New(ds, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
	}
}
