package main

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"supmap-tracker/internal/api"
	"supmap-tracker/internal/config"
	"supmap-tracker/internal/platform"
	"supmap-tracker/internal/settings"
	"supmap-tracker/internal/subscriber"
	"supmap-tracker/internal/track"
	"supmap-tracker/internal/tracker"
	"supmap-tracker/internal/ws"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New()
	if err != nil {
		return err
	}

	var loggerOpts slog.HandlerOptions
	if conf.Env == config.EnvDev {
		loggerOpts = slog.HandlerOptions{Level: slog.LevelDebug}
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, &loggerOpts)
	logger := slog.New(jsonHandler)

	dataDir, err := platform.WritableDir(conf.DataDir)
	if err != nil {
		return fmt.Errorf("no writable data directory: %w", err)
	}

	var redisClient *redis.Client
	if conf.UsesRedis() {
		redisClient = redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})
		defer redisClient.Close()
	}

	settingsStore := newSettingsStore(conf, dataDir, redisClient, logger)

	trackStore := track.New(platform.TrackFilePath(dataDir), track.Options{
		MaxCount:         conf.MaxPointCount,
		Duration:         track.DefaultDuration,
		Filter:           track.NewDefaultFilter(track.DefaultFilterConfig),
		Logger:           logger,
		CompactThreshold: conf.CompactThreshold,
	})
	defer func() {
		if err := trackStore.Close(); err != nil {
			logger.Warn("failed to close track log", "error", err)
		}
	}()

	gpsTracker := tracker.New(ctx, trackStore, settingsStore, logger)

	if conf.RedisLocationsChannel != "" {
		sub := subscriber.NewSubscriber(logger, redisClient, conf.RedisLocationsChannel, gpsTracker)
		go func() {
			if err := sub.Start(ctx); err != nil {
				logger.Error("subscriber stopped with error", "error", err)
			}
		}()
	}

	wsManager := ws.NewManager(ctx, logger, gpsTracker)
	go wsManager.Start()
	defer wsManager.Shutdown()

	server := api.NewServer(conf, gpsTracker, wsManager, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	return nil
}

func newSettingsStore(conf *config.Config, dataDir string, redisClient *redis.Client, logger *slog.Logger) settings.Store {
	if conf.SettingsBackend == config.SettingsRedis {
		return settings.NewRedisStore(redisClient)
	}
	store := settings.NewFileStore(platform.SettingsFilePath(dataDir))
	if err := store.Load(); err != nil {
		logger.Warn("failed to load settings, using defaults", "error", err)
	}
	return store
}
