package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siyaram/article-server/config"
	"github.com/siyaram/article-server/internal/api"
	"github.com/siyaram/article-server/internal/cleanup"
	"github.com/siyaram/article-server/internal/storage"
	"github.com/siyaram/article-server/internal/upload"
	"github.com/siyaram/article-server/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize database tables
	if err := store.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database tables: %v", err)
	}

	// Upload staging
	validator, err := upload.NewValidator(cfg.Uploads.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize upload directory: %v", err)
	}

	// Post-commit file cleanup with its own audit log
	cleanupLogger, err := utils.NewFileLogger("logs", "cleanup")
	if err != nil {
		log.Fatalf("Failed to create cleanup logger: %v", err)
	}
	defer cleanupLogger.Close()

	reconciler := cleanup.NewReconciler(cleanupLogger)

	// Initialize API server
	handler := api.NewHandler(store, validator, reconciler)
	server := api.NewServer(cfg.Server.Port, cfg.Server.CORSOrigin, cfg.Uploads.Dir, handler)

	// Start the API server
	go func() {
		log.Printf("Starting API server on port %d", cfg.Server.Port)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()

	// Wait for shutdown
	waitForShutdown(server)
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return storage.NewPostgresStore(cfg.Database.URL)
	case "sqlite3":
		return storage.NewSQLiteStore(cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func waitForShutdown(server *api.Server) {
	// Handle system signals for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down...")

	// Graceful server shutdown
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	log.Println("Server shut down gracefully")
}
