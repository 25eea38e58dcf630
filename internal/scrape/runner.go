package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/extract"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/navigation"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/observability"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/pipeline"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/storage"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// DriverFactory opens the driver session for one run.
type DriverFactory func(ctx context.Context) (driver.Driver, error)

// Report summarizes one scraping run.
type Report struct {
	Found      int
	Kept       int
	Dropped    int
	Saved      int
	Failed     int
	Path       string
	URL        string
	Selector   string
	Attempts   int
	ExportPath string
	StartedAt  time.Time
	Duration   time.Duration
}

// Snapshot returns the report as a flat map for structured logging.
func (r *Report) Snapshot() map[string]any {
	return map[string]any{
		"found":    r.Found,
		"kept":     r.Kept,
		"dropped":  r.Dropped,
		"saved":    r.Saved,
		"failed":   r.Failed,
		"path":     r.Path,
		"url":      r.URL,
		"selector": r.Selector,
		"attempts": r.Attempts,
		"elapsed":  r.Duration.String(),
	}
}

// Runner wires one scraping run: storage check, driver session, navigation,
// post-processing, persistence and export.
type Runner struct {
	cfg       *config.Config
	base      *slog.Logger
	logger    *slog.Logger
	store     storage.Storage
	newDriver DriverFactory
	pipeline  *pipeline.Pipeline
	metrics   *observability.Metrics
	now       func() time.Time
}

// Option configures the Runner.
type Option func(*Runner)

// WithDriverFactory replaces the driver selected by cfg.Browser.
func WithDriverFactory(f DriverFactory) Option {
	return func(r *Runner) { r.newDriver = f }
}

// WithPipeline replaces the pipeline built from cfg.Pipeline, which is
// rebuilt for every run.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(r *Runner) { r.pipeline = p }
}

// WithMetrics records run metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock sets the clock used to stamp products.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner persisting into store.
func New(cfg *config.Config, store storage.Storage, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		base:   logger,
		logger: logger.With("component", "runner"),
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newDriver == nil {
		r.newDriver = func(ctx context.Context) (driver.Driver, error) {
			return driver.New(ctx, cfg.Browser, logger)
		}
	}
	return r
}

// Run performs one scraping run. The driver is always closed before Run
// returns. Failures to save individual products are counted in the report;
// only storage unavailability, driver failures and cancellation are errors.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: r.now()}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		r.metrics.ObserveRun(report.Duration)
	}()

	if err := r.store.Ping(ctx); err != nil {
		return report, &types.StorageError{Backend: r.store.Name(), Err: fmt.Errorf("ping: %w", err)}
	}

	drv, err := r.newDriver(ctx)
	if err != nil {
		r.metrics.IncFailure(types.KindOf(err))
		return report, fmt.Errorf("open driver: %w", err)
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil {
			r.logger.Warn("driver close failed", "error", cerr)
		}
	}()
	r.logger.Info("run started", "driver", drv.Type(), "storage", r.store.Name())

	extractor := extract.New(r.cfg.Extraction, r.base, extract.WithMetrics(r.metrics), extract.WithClock(r.now))
	nav := navigation.New(r.cfg.Navigation, extractor, r.base, navigation.WithMetrics(r.metrics))

	outcome, err := nav.Run(ctx, drv)
	report.Attempts = len(outcome.Attempts)
	if err != nil {
		r.metrics.IncFailure(types.KindOf(err))
		r.logger.Error("run aborted", "error", err)
		return report, fmt.Errorf("navigation: %w", err)
	}

	report.Found = len(outcome.Products)
	report.Path = outcome.Path
	report.URL = outcome.URL
	report.Selector = outcome.Selector

	if report.Found == 0 {
		r.logger.Warn("no products found", "attempts", report.Attempts)
		return report, nil
	}

	pipe := r.pipeline
	if pipe == nil {
		pipe = pipeline.FromConfig(r.cfg.Pipeline, r.base)
	}
	products, dropped := pipe.Run(outcome.Products)
	report.Kept = len(products)
	report.Dropped = dropped
	for i := 0; i < dropped; i++ {
		r.metrics.IncDropped()
	}

	saved := r.persist(ctx, products, report)

	if r.cfg.Storage.ExportFormat != "" && len(saved) > 0 {
		path, err := r.export(saved)
		if err != nil {
			return report, err
		}
		report.ExportPath = path
	}

	r.logger.Info("run complete", "stats", report.Snapshot())
	return report, nil
}

// persist inserts products one by one. A failed insert is logged and
// counted without stopping the remaining inserts.
func (r *Runner) persist(ctx context.Context, products []types.Product, report *Report) []types.Product {
	saved := make([]types.Product, 0, len(products))
	for i, p := range products {
		id, err := r.store.Insert(ctx, p)
		if err != nil {
			report.Failed++
			r.metrics.IncStoreError()
			r.logger.Warn("insert failed", "index", i+1, "name", p.Name, "error", err)
			continue
		}
		p.ID = id
		saved = append(saved, p)
		report.Saved++
		r.metrics.IncStored()
		r.logger.Debug("product saved", "id", id, "name", p.Name)
	}
	return saved
}

func (r *Runner) export(products []types.Product) (string, error) {
	exp, err := storage.NewExporter(r.cfg.Storage.ExportFormat, r.cfg.Storage.ExportPath, r.base)
	if err != nil {
		return "", &types.StorageError{Backend: r.cfg.Storage.ExportFormat, Err: err}
	}
	if err := exp.Export(products); err != nil {
		exp.Close()
		return "", &types.StorageError{Backend: r.cfg.Storage.ExportFormat, Err: err}
	}
	if err := exp.Close(); err != nil {
		return "", &types.StorageError{Backend: r.cfg.Storage.ExportFormat, Err: err}
	}
	return exp.Path(), nil
}
