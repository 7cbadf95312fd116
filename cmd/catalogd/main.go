package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ncecere/fedramp_marketplace/internal/app"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/database"
	"github.com/ncecere/fedramp_marketplace/internal/httpserver"
	"github.com/ncecere/fedramp_marketplace/internal/observability"
	"github.com/ncecere/fedramp_marketplace/internal/redisclient"
)

func main() {
	configFile := flag.String("config", "", "path to the catalog config file")
	envFile := flag.String("env-file", "", "path to a .env file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	var dbPool *pgxpool.Pool
	if cfg.Database.URL != "" {
		if err := database.RunMigrations(ctx, cfg.Database, logger); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		dbPool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer dbPool.Close()
	}

	var redisClient *redis.Client
	if redisclient.Enabled(cfg.Redis) {
		redisClient = redisclient.New(cfg.Redis)
		if err := redisclient.Ping(ctx, redisClient); err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer redisClient.Close()
	}

	obs, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		log.Fatalf("setup observability: %v", err)
	}
	defer obs.Shutdown(context.Background())

	container, err := app.NewContainer(ctx, cfg, app.Options{
		Logger:        logger,
		DBPool:        dbPool,
		Redis:         redisClient,
		Observability: obs,
	})
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	container.StartRefresher(ctx)

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	logger.Info("catalog service listening",
		slog.String("addr", cfg.Server.ListenAddr),
		slog.String("source", cfg.Catalog.Source),
	)
	if err := server.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server stopped: %v", err)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
