package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/shelfimport/internal/config"
	"github.com/JonMunkholm/shelfimport/internal/core"
	"github.com/JonMunkholm/shelfimport/internal/logging"
	"github.com/JonMunkholm/shelfimport/internal/store"
	"github.com/JonMunkholm/shelfimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver(),
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"import_batch_size", cfg.Import.BatchSize,
		"import_on_duplicate", cfg.Import.OnDuplicate,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	catalog, err := store.Open(ctx, cfg.Database, slog.Default())
	if err != nil {
		slog.Error("failed to open catalog store", "driver", cfg.Database.Driver(), "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	if err := catalog.Ping(ctx); err != nil {
		slog.Error("failed to ping catalog store", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to catalog store", "driver", cfg.Database.Driver())

	service := core.NewService(catalog, core.NewServiceConfig(cfg.Import))
	server := web.NewServer(service, catalog, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running imports finish their current batches before the
		// listener goes away.
		if status := service.Status(); status.Limiter.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Limiter.Active)
			if err := service.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
