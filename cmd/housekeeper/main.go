// housekeeper is the offline maintenance binary. It prunes read
// notifications older than the configured retention window and exits.
// Usage: go run ./cmd/housekeeper --config configs/server.local.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/avelichko/couriertrack/internal/config"
	"github.com/avelichko/couriertrack/internal/database"
	"github.com/avelichko/couriertrack/internal/store"
	"github.com/avelichko/couriertrack/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("starting housekeeper",
		"version", version.Version,
		"retention", cfg.Housekeeping.NotificationRetention,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	cutoff := time.Now().Add(-cfg.Housekeeping.NotificationRetention)
	if *dryRun {
		logger.Info("dry run, nothing deleted", "cutoff", cutoff.Format(time.RFC3339))
		return
	}

	notifications := store.NewNotificationStore(pool)
	deleted, err := notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		logger.Error("prune notifications", "error", err)
		os.Exit(1)
	}

	logger.Info("pruned read notifications",
		"deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
	)
}
