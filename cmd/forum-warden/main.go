package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"forum-warden/internal/audit"
	"forum-warden/internal/cache"
	"forum-warden/internal/config"
	"forum-warden/internal/crash"
	"forum-warden/internal/gateway"
	"forum-warden/internal/logger"
	"forum-warden/internal/moderation"
	"forum-warden/internal/platform"
	"forum-warden/internal/rotation"
	"forum-warden/internal/storage"
	"forum-warden/internal/store"
)

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database if enabled
	var deletions *storage.DeletionRepository
	if cfg.Database.Enabled {
		if err := storage.Initialize(cfg); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		deletions = storage.NewDeletionRepository(storage.GetDB())
		if err := deletions.MigrateTable(); err != nil {
			log.Fatalf("Failed to migrate database tables: %v", err)
		}
		log.Println("Database connection established")
	}

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load moderation state from disk
	dataDir := cfg.Storage.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st := store.New(store.Paths{
		Bans:        filepath.Join(dataDir, cfg.Storage.BannedUsersFile),
		Permissions: filepath.Join(dataDir, cfg.Storage.PermissionsFile),
		Stats:       filepath.Join(dataDir, cfg.Storage.PostStatsFile),
		Featured:    filepath.Join(dataDir, cfg.Storage.FeaturedPostsFile),
	})
	if err := st.LoadAll(); err != nil {
		log.Fatalf("Failed to load moderation state: %v", err)
	}

	// The platform adapter is a deployment concern; until one is plugged in the
	// nop client keeps the pipeline runnable.
	var client platform.Client = platform.NopClient{}

	banCache := cache.NewBanCache(st, cfg.Moderation.BanCacheTTL)
	defer banCache.Close()

	pipeline := audit.NewPipeline(client, cfg.Guild.ID, cfg.Guild.LogChannelID, cfg.Guild.LogForumID, cfg.Guild.LogPostID)

	svc := moderation.NewService(st, banCache, pipeline, client, cfg, deletions)
	svc.StartDeletionRetry(ctx, time.Minute)

	labeler := rotation.NewTagLabeler(client, cfg.Guild.FeaturedTagName)
	controller := rotation.NewController(st, client, labeler, cfg.Guild.ID, cfg.Guild.FeaturedForums,
		cfg.Rotation.MessageCountThreshold, cfg.Rotation.Interval)
	crash.SafeGoroutine("rotation-controller", func() {
		controller.Run(ctx)
	})

	server, err := gateway.Setup(cfg, svc, st)
	if err != nil {
		log.Fatalf("Failed to set up gateway: %v", err)
	}

	// Start HTTP server in a goroutine
	crash.SafeGoroutine("gateway", func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server error: %v", err)
		}
	})

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)
	cancel()

	// Gracefully shutdown server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server gracefully stopped")
}
