// Package app assembles the pipeline from configuration: stores, scrapers,
// translator, composer, schedulers and the delivery loop.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"OutageNotifier/internal/aggregate"
	"OutageNotifier/internal/area"
	"OutageNotifier/internal/compose"
	"OutageNotifier/internal/config"
	"OutageNotifier/internal/deliver"
	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/infrastructure/scheduler"
	"OutageNotifier/internal/infrastructure/storage"
	"OutageNotifier/internal/infrastructure/telegram"
	"OutageNotifier/internal/infrastructure/translate"
	"OutageNotifier/internal/ingest"
	"OutageNotifier/internal/logging"
	"OutageNotifier/internal/ports"
	"OutageNotifier/internal/scrape"
	"OutageNotifier/internal/usecase"
)

// Application owns the long-lived components and their lifecycle.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *sql.DB
	resolver   *area.Resolver
	pipeline   *usecase.Pipeline
	delivery   *deliver.Scheduler
	schedulers []*usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewRepository(db)

	var translator ports.Translator = translate.NewClient(
		cfg.Translator.Endpoint, cfg.Translator.APIKey, cfg.Translator.Timeout)
	if cfg.Redis.Addr != "" {
		kv := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		translator = translate.NewCache(translator, kv, cfg.Translator.CacheTTL,
			logging.Component(baseLogger, "translate.cache"))
	}

	langs := cfg.Languages()
	composer := compose.New(cfg.Delivery.MaxPayloadSize)
	resolver := area.NewResolver(repo, translator, langs,
		logging.Component(baseLogger, "area"))

	registry := scrape.NewRegistry()
	registry.Register(scrape.NewPowerScraper(nil, cfg.Sources.PowerURL))
	if cfg.Sources.WaterURL != "" {
		registry.Register(scrape.NewPanelScraper(nil, cfg.Sources.WaterURL, domain.EventWater))
	}
	if cfg.Sources.GasURL != "" {
		registry.Register(scrape.NewPanelScraper(nil, cfg.Sources.GasURL, domain.EventGas))
	}

	powerFeed, err := registry.Resolve(domain.EventPower)
	if err != nil {
		return nil, err
	}
	power := ingest.NewPowerIngestor(powerFeed, repo, langs,
		logging.Component(baseLogger, "ingest.power"))

	bodies := map[domain.EventType]*ingest.BodyIngestor{}
	for _, t := range []domain.EventType{domain.EventWater, domain.EventGas} {
		feed, err := registry.Resolve(t)
		if err != nil {
			continue
		}
		bodies[t] = ingest.NewBodyIngestor(feed, repo,
			logging.Component(baseLogger, "ingest."+string(t)))
	}

	agg := aggregate.New(aggregate.Deps{
		Events:     repo,
		Outages:    repo,
		Messages:   repo,
		Areas:      resolver,
		Translator: translator,
		Composer:   composer,
		Languages:  langs,
		Logger:     logging.Component(baseLogger, "aggregate"),
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Power:      power,
		Bodies:     bodies,
		Aggregator: agg,
		Events:     repo,
		Outages:    repo,
		Messages:   repo,
		Composer:   composer,
		Languages:  langs,
		Retention:  cfg.Retention.Horizon,
		Logger:     logging.Component(baseLogger, "pipeline"),
	})

	delivery := deliver.NewScheduler(repo,
		telegram.NewSender(cfg.Notifications.BotToken),
		cfg.Notifications.Channels,
		cfg.Delivery.MessageDelay, cfg.Delivery.IdleDelay, cfg.Delivery.MaxRetries,
		logging.Component(baseLogger, "deliver"))

	schedulers := []*usecase.Scheduler{
		usecase.NewScheduler(
			scheduler.NewTickerScheduler(cfg.Sources.PowerPollInterval),
			pipeline.IngestPower),
		usecase.NewScheduler(
			scheduler.NewTickerScheduler(cfg.Delivery.ProcessInterval),
			pipeline.Process),
	}
	if _, ok := bodies[domain.EventWater]; ok {
		schedulers = append(schedulers, usecase.NewScheduler(
			scheduler.NewTickerScheduler(cfg.Sources.WaterPollInterval),
			func(ctx context.Context) error {
				return pipeline.IngestBody(ctx, domain.EventWater)
			}))
	}
	if _, ok := bodies[domain.EventGas]; ok {
		schedulers = append(schedulers, usecase.NewScheduler(
			scheduler.NewTickerScheduler(cfg.Sources.GasPollInterval),
			func(ctx context.Context) error {
				return pipeline.IngestBody(ctx, domain.EventGas)
			}))
	}

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		db:         db,
		resolver:   resolver,
		pipeline:   pipeline,
		delivery:   delivery,
		schedulers: schedulers,
	}, nil
}

// Run starts the recurring schedulers and the delivery loop and blocks
// until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	for _, s := range a.schedulers {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	a.logger.Info("pipeline schedulers started", "count", len(a.schedulers))

	err := a.delivery.Run(ctx)

	a.shutdown()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// RunOnce executes a single full pipeline cycle and one delivery drain.
// Useful for cron-style deployments and smoke testing.
func (a *Application) RunOnce(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := a.pipeline.Cycle(ctx, time.Now()); err != nil {
		return err
	}
	a.resolver.Wait()
	_, err := a.delivery.DrainOnce(ctx)
	return err
}

func (a *Application) shutdown() {
	stopCtx := context.Background()
	for _, s := range a.schedulers {
		_ = s.Stop(stopCtx)
	}
	a.resolver.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("database close failed", "error", err)
	}
	a.logger.Info("application stopped")
}
