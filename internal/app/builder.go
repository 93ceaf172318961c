// Package app assembles the trend service from configuration.
package app

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"trend-go/internal/config"
	"trend-go/internal/service"
	"trend-go/pkg/analysis"
	"trend-go/pkg/api"
	"trend-go/pkg/logger"
	"trend-go/pkg/source"
	"trend-go/pkg/storage"
	"trend-go/pkg/trend"
	"trend-go/pkg/worker"
)

// App holds every long-lived component of one process.
type App struct {
	Config      *config.Config
	Store       *storage.BatchStore
	Cache       *storage.EntryCache
	Pool        *worker.WorkerPool
	Coordinator *trend.Coordinator
	Scheduler   *trend.Scheduler
	Analyzer    *analysis.Analyzer
	Service     service.TrendService
}

// Builder collects overrides and validation errors before Build.
type Builder struct {
	config  *config.Config
	clock   clockwork.Clock
	rows    storage.RowStore
	sources []source.Source
	errors  *multierror.Error
}

func NewBuilder(cfg *config.Config) *Builder {
	b := &Builder{config: cfg, clock: clockwork.NewRealClock()}
	if cfg == nil {
		b.errors = multierror.Append(b.errors, fmt.Errorf("configuration cannot be nil"))
	}
	return b
}

// WithClock replaces the real clock.
func (b *Builder) WithClock(clock clockwork.Clock) *Builder {
	if clock == nil {
		b.errors = multierror.Append(b.errors, fmt.Errorf("clock cannot be nil"))
		return b
	}
	b.clock = clock
	return b
}

// WithRowStore uses rows instead of opening the configured driver.
func (b *Builder) WithRowStore(rows storage.RowStore) *Builder {
	if rows == nil {
		b.errors = multierror.Append(b.errors, fmt.Errorf("row store cannot be nil"))
		return b
	}
	b.rows = rows
	return b
}

// WithSources uses sources instead of the configured scrapers.
func (b *Builder) WithSources(sources ...source.Source) *Builder {
	if len(sources) == 0 {
		b.errors = multierror.Append(b.errors, fmt.Errorf("at least one source is required"))
		return b
	}
	b.sources = sources
	return b
}

// Validate reports every error collected so far.
func (b *Builder) Validate() error {
	if b.config != nil && b.sources == nil {
		b.checkURL("sources.naver.base_url", b.config.Sources.Naver.Enabled, b.config.Sources.Naver.BaseURL)
		b.checkURL("sources.youtube.url", b.config.Sources.YouTube.Enabled, b.config.Sources.YouTube.URL)
		b.checkURL("sources.google_trends.url", b.config.Sources.GoogleTrends.Enabled, b.config.Sources.GoogleTrends.URL)
	}
	if err := b.errors.ErrorOrNil(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func (b *Builder) checkURL(key string, enabled bool, raw string) {
	if !enabled {
		return
	}
	if u, err := url.Parse(raw); err != nil || u.Host == "" {
		b.errors = multierror.Append(b.errors, fmt.Errorf("invalid %s: %q", key, raw))
	}
}

// Build wires the application. Nothing runs until Start.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	cfg := b.config
	secureLog := logger.GetSecurityLogger()

	rows := b.rows
	if rows == nil {
		opened, err := OpenRowStore(ctx, cfg.Storage)
		if err != nil {
			secureLog.SafeError("Failed to open row store", err, map[string]interface{}{
				"storage_driver": cfg.Storage.Driver,
				"storage_dsn":    cfg.Storage.DSN,
			})
			return nil, err
		}
		rows = opened
	}

	sources := b.sources
	if sources == nil {
		sources = buildSources(cfg.Sources, b.clock)
	}

	store := storage.NewBatchStore(rows, b.clock, cfg.Storage.OverRead)
	cache := storage.NewEntryCache(0, cfg.Refresh.StalenessThreshold)
	pool := worker.NewWorkerPool(worker.WorkerPoolConfig{
		MaxWorkers:    cfg.Refresh.Workers,
		QueueSize:     cfg.Refresh.QueueSize,
		WorkerTimeout: cfg.Refresh.TaskTimeout,
	})
	aggregator := source.NewAggregator(sources, cfg.Sources.PerSourceCap, cfg.Sources.Timeout)
	coordinator := trend.NewCoordinator(store, aggregator, pool, cache, b.clock, trend.Config{
		StalenessThreshold: cfg.Refresh.StalenessThreshold,
		TaskTimeout:        cfg.Refresh.TaskTimeout,
	})
	scheduler := trend.NewScheduler(coordinator, cfg.Refresh.Interval, b.clock, cfg.Refresh.RunOnStart)

	datalab := api.NewDataLabClient(api.DataLabConfig{
		Endpoint:     cfg.DataLab.Endpoint,
		ClientID:     cfg.DataLab.ClientID,
		ClientSecret: cfg.DataLab.ClientSecret,
		Timeout:      cfg.DataLab.Timeout,
	}, b.clock)
	llm := api.NewLLMClient(api.LLMConfig{
		Endpoint: cfg.LLM.Endpoint,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	}, b.clock)
	analyzer := analysis.NewAnalyzer(store, datalab, llm, analysis.Config{
		SeriesTimeout:         cfg.DataLab.Timeout,
		ExplainTimeout:        cfg.LLM.Timeout,
		MaxConcurrentExplains: cfg.LLM.MaxConcurrent,
	})

	if !llm.Configured() {
		secureLog.SafeWarn("LLM credential missing, analysis answers the degraded text", map[string]interface{}{
			"llm_endpoint": cfg.LLM.Endpoint,
		})
	}
	if !datalab.Configured() {
		secureLog.SafeWarn("DataLab credentials missing, chart data will be empty", map[string]interface{}{
			"datalab_endpoint": cfg.DataLab.Endpoint,
		})
	}

	secureLog.SafeInfo("Application wired", map[string]interface{}{
		"storage_driver":     cfg.Storage.Driver,
		"storage_dsn":        secureLog.MaskDSN(cfg.Storage.DSN),
		"sources":            len(sources),
		"refresh_interval":   cfg.Refresh.Interval.String(),
		"staleness":          cfg.Refresh.StalenessThreshold.String(),
		"llm_configured":     llm.Configured(),
		"datalab_configured": datalab.Configured(),
	})

	return &App{
		Config:      cfg,
		Store:       store,
		Cache:       cache,
		Pool:        pool,
		Coordinator: coordinator,
		Scheduler:   scheduler,
		Analyzer:    analyzer,
		Service:     service.NewTrendService(coordinator, analyzer),
	}, nil
}

// OpenRowStore opens the row store selected by cfg.Driver.
func OpenRowStore(ctx context.Context, cfg config.StorageConfig) (storage.RowStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return storage.OpenSQLite(cfg.DSN)
	case "postgres":
		return storage.OpenPostgres(ctx, cfg.DSN)
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

func buildSources(cfg config.SourcesConfig, clock clockwork.Clock) []source.Source {
	pages := source.NewPageClient(cfg.Timeout)

	var sources []source.Source
	if cfg.Naver.Enabled {
		sources = append(sources, source.NewNaverShoppingSource(source.NaverConfig{
			BaseURL: cfg.Naver.BaseURL,
			PageQPS: cfg.Naver.PageQPS,
			TopN:    cfg.PerSourceCap,
		}, pages, clock))
	}
	if cfg.YouTube.Enabled {
		sources = append(sources, source.NewYouTubeSource(cfg.YouTube.URL, cfg.PerSourceCap, pages))
	}
	if cfg.GoogleTrends.Enabled {
		sources = append(sources, source.NewGoogleTrendsSource(cfg.GoogleTrends.URL, cfg.PerSourceCap, pages))
	}
	return sources
}

// Start launches the refresh workers and the periodic trigger.
func (a *App) Start() error {
	if err := a.Pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	a.Scheduler.Start()
	return nil
}

// Close stops background work and closes the store.
func (a *App) Close() error {
	var result *multierror.Error

	a.Scheduler.Stop()
	if err := a.Pool.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop worker pool: %w", err))
	}
	// queued refreshes are done, drop the in-flight flags with the batches
	a.Cache.Clear()
	if err := a.Store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close store: %w", err))
	}
	return result.ErrorOrNil()
}
