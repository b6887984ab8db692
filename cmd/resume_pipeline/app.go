package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonathan/resume-pipeline/internal/ai"
	"github.com/jonathan/resume-pipeline/internal/cache"
	"github.com/jonathan/resume-pipeline/internal/config"
	"github.com/jonathan/resume-pipeline/internal/db"
	"github.com/jonathan/resume-pipeline/internal/fetch"
	"github.com/jonathan/resume-pipeline/internal/llm"
	"github.com/jonathan/resume-pipeline/internal/lock"
	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/memstore"
	"github.com/jonathan/resume-pipeline/internal/pipeline"
	"github.com/jonathan/resume-pipeline/internal/sandbox"
	"github.com/jonathan/resume-pipeline/internal/search"
	"github.com/jonathan/resume-pipeline/internal/storage"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// backend is the persistence layer shared by the service, the cache and the engine.
// db.DB and memstore.Store both implement it.
type backend interface {
	pipeline.Store
	cache.Store
	workflow.Store
}

// app is the wired set of components behind the serve, worker and submit commands.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   backend
	queue   workflow.Queue
	engine  *workflow.Engine
	service *pipeline.Service
	closers []func()
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// distributed reports whether events travel through redis, so that the API
// and the worker can run as separate processes.
func (a *app) distributed() bool {
	return a.cfg.RedisAddr != ""
}

// buildApp wires the pipeline from configuration. A database URL selects
// PostgreSQL over the in-memory store; a redis address selects the redis
// queue and locks over their in-process versions.
func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return nil, err
		}
		a.store = database
	} else {
		log.Warn("DATABASE_URL not set, using the in-memory store")
		a.store = memstore.New()
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DialTimeout: 5 * time.Second})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.queue = workflow.NewRedisQueue(rdb, cfg.RedisQueue)
		locker = lock.NewRedisLocker(rdb, "pipeline:lock:", 0)
	} else {
		q := workflow.NewChannelQueue(256)
		a.closers = append(a.closers, func() { _ = q.Close() })
		a.queue = q
	}

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}
	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	adapter := ai.NewAdapter(client, cfg.AITimeout.Std(), log.With("component", "ai"))

	var markup pipeline.MarkupGenerator = adapter
	if cfg.MarkupMode == "template" {
		tm, err := ai.NewTemplateMarkup()
		if err != nil {
			return nil, err
		}
		markup = tm
	}

	resultCache := cache.New(a.store, cfg.CacheWindow.Std())
	deps := pipeline.Deps{
		Store:      a.store,
		Structurer: adapter,
		Markup:     markup,
		Compiler:   newCompiler(cfg.Sandbox, log),
		Blobs:      blobs,
		Locker:     locker,
		Search:     newAggregator(cfg.Search, log),
		Cache:      resultCache,
		Download:   fetch.DefaultOptions(),
		Logger:     log,
	}

	a.engine = workflow.New(a.store, a.queue, workflow.Options{
		Concurrency: cfg.WorkerConcurrency,
		Backoff:     cfg.RetryBackoff.Std(),
		Logger:      log.With("component", "workflow"),
	})
	if err := pipeline.Register(a.engine, deps); err != nil {
		return nil, err
	}

	a.service = pipeline.NewService(a.store, a.engine, resultCache, blobs, log.With("component", "service"))
	return a, nil
}

// llmConfig applies the configured per-tier model overrides to the defaults.
func llmConfig(cfg *config.Config) *llm.Config {
	overrides := make(map[llm.ModelTier]string, len(cfg.Models))
	for tier, model := range cfg.Models {
		overrides[llm.ModelTier(tier)] = model
	}
	return llm.DefaultConfig().WithModels(overrides)
}

// newBlobStore prefers S3-compatible storage when a bucket is configured.
func newBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	if cfg.S3Bucket != "" {
		s3, err := storage.NewS3Store(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		return s3, nil
	}
	if cfg.Dir == "" {
		return nil, nil
	}
	local, err := storage.NewLocalStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}
	return local, nil
}

// newCompiler calls the sandbox service, falling back to the public compiler.
func newCompiler(cfg config.SandboxConfig, log *logger.Logger) sandbox.Client {
	primary := sandbox.NewHTTPClient(cfg.URL, cfg.PrimaryTimeout.Std())
	var fallback sandbox.Client
	if cfg.FallbackURL != "" {
		fallback = sandbox.NewOnlineClient(cfg.FallbackURL, cfg.FallbackTimeout.Std())
	}
	return sandbox.NewChain(primary, fallback, log.With("component", "compiler"))
}

// newAggregator queries every provider that has credentials configured.
func newAggregator(cfg config.SearchConfig, log *logger.Logger) *search.Aggregator {
	providers := []search.Provider{
		search.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, cfg.Timeout.Std()),
		search.NewJSearch(cfg.RapidAPIKey, cfg.Timeout.Std()),
	}
	return search.NewAggregator(providers, cfg.MaxQueryVariants, cfg.CallDelay.Std(), log.With("component", "search"))
}
