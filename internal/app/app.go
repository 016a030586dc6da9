// Package app wires configuration into a runnable pipeline.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/intelligencebrief/brief/internal/config"
	"github.com/intelligencebrief/brief/internal/digest"
	"github.com/intelligencebrief/brief/internal/enrich"
	"github.com/intelligencebrief/brief/internal/feeds"
	"github.com/intelligencebrief/brief/internal/logger"
	"github.com/intelligencebrief/brief/internal/newsapi"
	"github.com/intelligencebrief/brief/internal/notify"
	"github.com/intelligencebrief/brief/internal/pipeline"
	"github.com/intelligencebrief/brief/internal/storage"
)

// ArticleStore is the full persistence surface the app wires together.
type ArticleStore interface {
	pipeline.Store
	digest.Store
	Close() error
}

// Run loads configuration, assembles the pipeline and executes it.
// With CRON_SCHEDULE set it keeps running on that schedule until the
// process receives SIGINT or SIGTERM; otherwise it runs a single cycle.
func Run() error {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Debug)
	cfg.LogDegradations()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, store, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.CronSchedule == "" {
		return p.Run(ctx)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.CronSchedule, func() {
		if err := p.Run(ctx); err != nil {
			logger.Logger.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.CronSchedule, err)
	}

	logger.Logger.Info("scheduler started", "schedule", cfg.CronSchedule)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// Build assembles the pipeline from configuration, degrading gracefully
// when optional services are not configured.
func Build(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, ArticleStore, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	descriptors, err := feeds.LoadDescriptors(cfg.FeedsConfigPath)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load feeds config: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	fetcher := feeds.NewFetcher(httpClient, cfg.EntriesPerFeed)

	var enricher *enrich.Client
	if cfg.HasGemini() {
		enricher, err = enrich.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EnrichThrottle, cfg.MaxEnrichCalls)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("init enrichment client: %w", err)
		}
	}

	var notifier notify.Notifier = notify.NoOp{}
	if cfg.FirebaseCredentials != "" {
		fcm, err := notify.NewFCM(ctx, cfg.FirebaseCredentials)
		if err != nil {
			logger.Logger.Error("push notifications disabled", "error", err)
		} else {
			notifier = fcm
		}
	}

	var fallback pipeline.FallbackSource
	if cfg.HasNewsData() {
		fallback = newsapi.NewClient(cfg.NewsDataURL, cfg.NewsDataAPIKey, httpClient)
	}

	var synth digest.Synthesizer
	if cfg.SynthesizeClusters && cfg.HasGemini() {
		synth = enricher
	}
	builder := digest.NewBuilder(store, synth, cfg.DigestStrategy, cfg.DigestCategories, cfg.DigestMaxStories)

	p := pipeline.New(pipeline.Deps{
		Store:          store,
		Enricher:       enricher,
		Digest:         builder,
		Notifier:       notifier,
		Fetcher:        fetcher,
		Fallback:       fallback,
		Descriptors:    descriptors,
		FeedsPerRun:    cfg.FeedsPerRun,
		MinTitleLength: cfg.MinTitleLength,
		BroadcastTopic: cfg.BroadcastTopic,
		RetentionAge:   cfg.RetentionAge,
	})
	return p, store, nil
}

func openStore(ctx context.Context, cfg *config.Config) (ArticleStore, error) {
	if !cfg.HasDatabase() {
		logger.Logger.Warn("DATABASE_URL not set, using local seen-link cache", "path", cfg.SeenCachePath)
		fs := storage.NewFileStore(cfg.SeenCachePath)
		if err := fs.Load(); err != nil {
			logger.Logger.Warn("seen-link cache unreadable, starting empty", "error", err)
		}
		return fs, nil
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}
