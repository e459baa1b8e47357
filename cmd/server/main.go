package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaki95/dj-cue-converter/config"
	"github.com/jaki95/dj-cue-converter/internal/server"
	"github.com/jaki95/dj-cue-converter/internal/storage"
)

func main() {
	port := flag.String("port", "", "Server port (overrides the configuration)")
	configPath := flag.String("config", "./config/config.yaml", "Configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	store, err := newStorage(context.Background(), cfg.Storage)
	if err != nil {
		slog.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}

	// Create and start server
	srv := server.New(cfg, store)
	srv.StartCleanupWorker()

	slog.Info("Starting DJ cue converter API server", "port", cfg.Server.Port, "storage", cfg.Storage.Type)
	if err := srv.Start(cfg.Server.Port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalFileStorage(cfg.DataDir, cfg.OutputDir, cfg.TempDir)
	case "gcs":
		return storage.NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix, cfg.TempDir, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
