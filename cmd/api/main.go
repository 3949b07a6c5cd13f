// Package main is the entry point for the video info and download API.
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

	"github.com/emanuelef/yt-info-api/internal/config"
	"github.com/emanuelef/yt-info-api/internal/infra/cache"
	"github.com/emanuelef/yt-info-api/internal/infra/fs"
	"github.com/emanuelef/yt-info-api/internal/infra/r2"
	"github.com/emanuelef/yt-info-api/internal/infra/sqlite"
	"github.com/emanuelef/yt-info-api/internal/service/downloader"
	"github.com/emanuelef/yt-info-api/internal/service/engine"
	"github.com/emanuelef/yt-info-api/internal/service/metadata"
	httptransport "github.com/emanuelef/yt-info-api/internal/transport/http"
	"github.com/emanuelef/yt-info-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Engine
	ytdlp := engine.NewYtDlp(&engine.Config{
		Executable:      cfg.YtDlpPath,
		InfoTimeout:     cfg.EngineInfoTimeout,
		DownloadTimeout: cfg.EngineDownloadTimeout,
	})
	if version, err := ytdlp.Check(ctx); err != nil {
		slog.Warn("yt-dlp not available, requests will fail until it is installed",
			"path", cfg.YtDlpPath,
			"error", err,
		)
	} else {
		slog.Info("yt-dlp found", "version", version)
	}

	// Metadata
	var infoCache metadata.Cache
	if cfg.MetadataCacheTTL > 0 {
		infoCache = cache.New(cfg.MetadataCacheTTL)
	}
	fetcher := metadata.NewFetcher(ytdlp, infoCache)

	// Journal
	var (
		repo        *sqlite.Repository
		journal     downloader.Journal
		journalRead httptransport.JournalReader
		pruner      fs.JournalPruner
	)
	if cfg.JournalEnabled {
		repo, err = sqlite.NewRepository(cfg.DataDir)
		if err != nil {
			slog.Error("Failed to open download journal", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		journal, journalRead, pruner = repo, repo, repo
		slog.Info("Download journal enabled", "dir", cfg.DataDir)
	}

	// Lifecycle manager
	manager, err := downloader.NewManager(ytdlp, &downloader.Config{
		WorkspaceDir:  cfg.TempDir,
		DefaultFormat: cfg.DefaultFormat,
		DefaultExt:    cfg.DefaultExt,
	}, journal)
	if err != nil {
		slog.Error("Failed to create download manager", "error", err)
		os.Exit(1)
	}

	// Optional R2 handoff
	var (
		handoff httptransport.Handoff
		remote  fs.RemoteSweeper
	)
	if cfg.R2Enabled() {
		client, err := r2.NewClient(ctx, &r2.Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Endpoint:        cfg.R2Endpoint,
			PublicURL:       cfg.R2PublicURL,
			PresignExpiry:   cfg.PresignedURLExpiry,
		})
		if err != nil {
			slog.Warn("R2 handoff disabled, streaming downloads directly", "error", err)
		} else {
			handoff, remote = client, client
		}
	}

	// Background sweeps for leftovers of interrupted requests
	cleaner := fs.NewCleaner(&fs.CleanerConfig{
		LocalDir:       manager.Dir(),
		LocalMaxAge:    cfg.LocalMaxFileAge,
		LocalInterval:  cfg.LocalCleanupInterval,
		Remote:         remote,
		RemoteMaxAge:   cfg.R2MaxFileAge,
		RemoteInterval: cfg.R2CleanupInterval,
		Journal:        pruner,
		JournalMaxAge:  cfg.JournalMaxAge,
	})
	cleaner.Start(ctx)

	handlers := httptransport.NewHandlers(fetcher, manager, journalRead, handoff)
	router := httptransport.NewRouter(&httptransport.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
	}, handlers)
	server := httptransport.NewServer(":"+cfg.Port, router, cfg.WriteTimeout)

	go func() {
		slog.Info("Server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"workspace", manager.Dir(),
			"handoff", handoff != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	cleaner.Stop()

	slog.Info("Server stopped")
}
