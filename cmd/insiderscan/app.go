package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/internal/baseline"
	"github.com/Alias1177/InsiderScan/internal/cache"
	"github.com/Alias1177/InsiderScan/internal/config"
	"github.com/Alias1177/InsiderScan/internal/database"
	"github.com/Alias1177/InsiderScan/internal/detector"
	"github.com/Alias1177/InsiderScan/internal/metrics"
	"github.com/Alias1177/InsiderScan/internal/notify"
	phttp "github.com/Alias1177/InsiderScan/internal/platform/http"
	"github.com/Alias1177/InsiderScan/models"
)

// app holds the wired components shared by the commands
type app struct {
	cfg      *config.Config
	db       *database.DB
	store    *database.Resilient
	redis    *redis.Client
	metrics  *metrics.Registry
	detector *detector.Detector
	notifier *notify.Dispatcher
	channels []models.Notifier
}

func newApp(ctx context.Context, cfg *config.Config, dryRun bool) (*app, error) {
	db, err := database.New(ctx, cfg.Database, database.Options{
		QueryTimeout: cfg.QueryTimeout,
		Location:     cfg.Location(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Connected to database")

	if !dryRun {
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		store:   database.NewResilient(db, database.DefaultRetryPolicy()),
		metrics: metrics.NewRegistry(),
	}

	var baselineCache baseline.Cache
	var dedup *notify.Deduplicator
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			// redis only speeds things up; run without it
			log.Warn().Err(err).Msg("Redis unavailable, continuing without baseline cache and alert dedup")
		} else {
			a.redis = client
			baselineCache = cache.NewBaselineCache(client, cache.BaselineTTL)
			dedup = notify.NewDeduplicator(client, 0)
		}
	}

	var sink models.RecordSink = a.store
	if dryRun {
		sink = nil
	}
	a.detector = detector.New(
		a.store,
		baseline.NewStore(a.store, baselineCache, cfg.Thresholds),
		sink,
		cfg.Thresholds,
		detector.Options{
			Workers:  cfg.DetectionWorkers,
			Location: cfg.Location(),
			DryRun:   dryRun,
			Recorder: a.metrics,
		},
	)

	channels, err := notifyChannels(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.channels = channels
	a.notifier = notify.NewDispatcher(notify.Filter{MinScore: cfg.AlertMinScore}, dedup, channels...)

	return a, nil
}

func notifyChannels(cfg *config.Config) ([]models.Notifier, error) {
	var channels []models.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		bot, err := notify.NewTelegramBot(cfg.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.NewTelegram(bot, cfg.TelegramChatID))
	}
	if cfg.AlertWebhookURL != "" {
		client := phttp.NewClient(phttp.ClientOptions{})
		channels = append(channels, notify.NewWebhook(cfg.AlertWebhookURL, client))
	}
	return channels, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
