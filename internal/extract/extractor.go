package extract

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/observability"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Extractor holds the static selector configuration of a run. It is safe for
// concurrent use once built.
type Extractor struct {
	containers Chain
	fields     map[types.Field]Chain
	minLength  int
	maxItems   int
	merge      bool
	workers    int

	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithMetrics records selector misses and item outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithClock overrides the timestamp source for assembled products.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an Extractor from the extraction config.
func New(cfg config.ExtractionConfig, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		containers: Chain(cfg.ContainerSelectors),
		fields: map[types.Field]Chain{
			types.FieldName:        Chain(cfg.Fields.Name),
			types.FieldPrice:       Chain(cfg.Fields.Price),
			types.FieldRating:      Chain(cfg.Fields.Rating),
			types.FieldDescription: Chain(cfg.Fields.Description),
		},
		minLength: cfg.MinTextLength,
		maxItems:  cfg.MaxProducts,
		merge:     cfg.MergeContainers,
		workers:   max(cfg.Workers, 1),
		logger:    logger.With("component", "extractor"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Field returns the first qualifying text for chain within container.
func (e *Extractor) Field(container driver.Element, chain Chain) (string, bool) {
	return FirstText(container, chain, e.minLength, e.selectorMiss)
}

// Assemble builds one product from container. Fields that cannot be
// extracted hold their sentinel; validity is checked by the caller.
func (e *Extractor) Assemble(container driver.Element, index int) types.Product {
	now := e.now()
	p := types.Product{CreatedAt: now, UpdatedAt: now}
	for _, f := range types.Fields {
		p = p.With(f, e.field(container, index, f))
	}
	return p
}

// field extracts one field, containing any panic raised by the driver so
// sibling fields are unaffected.
func (e *Extractor) field(container driver.Element, index int, f types.Field) (value string) {
	defer func() {
		if r := recover(); r != nil {
			err := &types.ItemError{Index: index, Field: f, Err: fmt.Errorf("panic: %v", r)}
			e.logger.Warn("field extraction failed", "index", index, "field", f, "error", err)
			e.metrics.IncFailure(types.KindOf(err))
			value = f.Sentinel()
		}
	}()

	if v, ok := e.Field(container, e.fields[f]); ok {
		return v
	}
	return f.Sentinel()
}

func (e *Extractor) selectorMiss(selector string, err error) {
	if types.IsFatal(err) {
		e.logger.Warn("driver failed during field lookup", "selector", selector, "error", err)
		e.metrics.IncFailure(types.KindOf(err))
		return
	}
	if err != nil {
		e.logger.Debug("selector failed", "selector", selector, "error", err)
	}
	e.metrics.IncFailure(types.KindSelectorMiss)
}
