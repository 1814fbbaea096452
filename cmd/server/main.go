// server runs the courier tracking platform: the REST API, the WebSocket
// broadcaster and the dispatch sweeper in one process.
// Usage: go run ./cmd/server --config configs/server.local.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/avelichko/couriertrack/internal/api"
	"github.com/avelichko/couriertrack/internal/auth"
	"github.com/avelichko/couriertrack/internal/config"
	"github.com/avelichko/couriertrack/internal/database"
	"github.com/avelichko/couriertrack/internal/dispatch"
	"github.com/avelichko/couriertrack/internal/metrics"
	"github.com/avelichko/couriertrack/internal/presence"
	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/service"
	"github.com/avelichko/couriertrack/internal/store"
	"github.com/avelichko/couriertrack/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	// Secrets referenced as ${VAR} in the config file may live in a .env.
	godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting server",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Backing stores.
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("connecting to redis", "addr", cfg.Redis.Addr)
	rdb, err := presence.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	tracker := presence.NewTracker(rdb, cfg.Redis.PresenceTTL, logger)
	m := metrics.New()
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	users := store.NewUserStore(pool)
	packages := store.NewPackageStore(pool)
	deliveries := store.NewDeliveryStore(pool)
	notifications := store.NewNotificationStore(pool)

	// Realtime broadcaster.
	router := realtime.NewRouter(realtime.Config{
		SendBuffer:     cfg.Realtime.SendBuffer,
		EventBuffer:    cfg.Realtime.EventBuffer,
		PingInterval:   cfg.Realtime.PingInterval,
		PongTimeout:    cfg.Realtime.PongTimeout,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
	}, realtime.Deps{
		Auth:     issuer,
		Presence: tracker,
		Metrics:  m,
	}, logger)

	// Services.
	userSvc := service.NewUserService(users, issuer, cfg.Auth.BcryptCost, logger)
	packageSvc := service.NewPackageService(packages, deliveries, users, notifications, tracker, router, logger)
	deliverySvc := service.NewDeliveryService(deliveries, packages, router, logger)
	notificationSvc := service.NewNotificationService(notifications, logger)

	// Dispatch sweeper.
	sweeper := dispatch.New(dispatch.Config{
		Interval:    cfg.Dispatch.Interval,
		StaleAfter:  cfg.Dispatch.StaleAfter,
		Concurrency: cfg.Dispatch.Concurrency,
	}, packages, tracker, router, notifications, m, logger)

	// HTTP surface.
	srv := api.NewServer(api.Deps{
		Users:         userSvc,
		Packages:      packageSvc,
		Deliveries:    deliverySvc,
		Notifications: notificationSvc,
		Realtime:      router,
		Auth:          issuer,
		Metrics:       m,
		Health: map[string]api.Pinger{
			"postgres": pool,
			"redis":    tracker,
		},
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := router.Start(ctx); err != nil {
		logger.Error("failed to start event router", "error", err)
		os.Exit(1)
	}
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("failed to start dispatch sweeper", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.Warn("sweeper stop", "error", err)
		}
		if err := router.Stop(shutdownCtx); err != nil {
			logger.Warn("router stop", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// logLevel maps the config value onto a slog level. Validation has already
// rejected anything else.
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
