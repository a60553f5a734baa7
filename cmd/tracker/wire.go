package main

import (
	"context"
	"fmt"
	"path/filepath"

	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/repository"
	"golang-microcap-tracker/internal/tracker/service"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/postgres"
	"golang-microcap-tracker/pkg/redis"
	"golang-microcap-tracker/pkg/sqlite"
	"golang-microcap-tracker/pkg/telegram"

	goredis "github.com/redis/go-redis/v9"
)

// app holds the wired services of one process.
type app struct {
	runService    service.DailyRunService
	reportService service.ReportService
	closers       []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{}

	store, err := a.newStore(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	prices, err := a.newPriceRepository(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	var decisions repository.DecisionRepository
	if cfg.AI.Enabled {
		decisions, err = newDecisionRepository(ctx, cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var news repository.NewsRepository
	if cfg.News.Enabled && len(cfg.News.Feeds) > 0 {
		news = repository.NewNewsRepository(cfg, log)
	}

	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Warn("Telegram disabled, failed to initialize bot", logger.ErrorField(err))
			notifier = nil
		}
	}

	a.runService, err = service.NewDailyRunService(cfg, store, prices, decisions, news, notifier, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reportService = service.NewReportService(cfg, store, log)
	return a, nil
}

func (a *app) newStore(cfg *config.Config, log *logger.Logger) (repository.PortfolioRepository, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		if err := repository.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		return repository.NewGormPortfolioRepository(db, log), nil

	case "postgres":
		db, err := postgres.NewDB(postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			TimeZone:        cfg.Database.TimeZone,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return repository.NewGormPortfolioRepository(db.DB, log), nil

	default:
		return repository.NewCSVPortfolioRepository(filepath.Clean(cfg.Storage.DataDir), log)
	}
}

// newPriceRepository builds the configured provider behind the price cache.
// Redis is optional: a connection failure only disables the shared cache.
func (a *app) newPriceRepository(cfg *config.Config, log *logger.Logger) (repository.PriceRepository, error) {
	var prices repository.PriceRepository
	switch cfg.Market.Provider {
	case "stooq":
		prices = repository.NewStooqRepository(cfg, log)
	case "alpaca":
		prices = repository.NewAlpacaRepository(cfg, log)
	default:
		if cfg.Polygon.APIKey == "" {
			return nil, fmt.Errorf("polygon api key is not configured (POLYGON_API_KEY)")
		}
		prices = repository.NewPolygonRepository(cfg, log)
	}

	var rdb goredis.Cmdable
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Warn("Redis price cache disabled", logger.ErrorField(err))
		} else {
			rdb = client.Client
			a.closers = append(a.closers, client.Close)
		}
	}
	return repository.NewCachedPriceRepository(prices, rdb, cfg.Market.CacheTTL, log), nil
}

func newDecisionRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.DecisionRepository, error) {
	switch cfg.AI.Provider {
	case "gemini":
		client, err := repository.NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return repository.NewGeminiRepository(cfg, log, client), nil
	default:
		return repository.NewOpenAIRepository(cfg, log), nil
	}
}
