// Package server boots the HTTP API: database, image storage and routes.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/database"
	"github.com/formdesk/server/internal/handlers"
	"github.com/formdesk/server/internal/storage"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// Run serves the API until SIGINT or SIGTERM, or until the listener fails.
func Run(cfg *config.Config) error {
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("minio initialization failed: %w", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		return fmt.Errorf("failed ensuring minio bucket: %w", err)
	}

	app := handlers.NewApp(cfg, db, storageClient)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server_starting", map[string]interface{}{
		"port":        cfg.Server.Port,
		"address":     listenAddr,
		"db_driver":   cfg.DB.Driver,
		"lock_policy": string(cfg.Forms.LockPolicy),
		"version":     handlers.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("server_shutting_down", map[string]interface{}{"signal": sig.String()})
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
