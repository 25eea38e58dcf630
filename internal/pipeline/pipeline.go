package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Middleware processes a product and returns the (possibly modified) copy.
// Return nil to drop the product from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a product. It must not modify p in place.
	Process(p *types.Product) (*types.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// FromConfig builds the pipeline run before storage. The name check is
// always present; normalization and dedup are opt-in.
func FromConfig(cfg config.PipelineConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	if cfg.Normalize {
		p.Use(&WhitespaceMiddleware{})
	}
	p.Use(&RequiredNameMiddleware{})
	if cfg.Dedup {
		p.Use(NewDedupMiddleware())
	}
	return p
}

// Stored builds the pipeline applied to records read back from storage.
// Documents written by other tools may lack fields.
func Stored(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&SentinelMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs one product through all middleware in order.
func (p *Pipeline) Process(product types.Product) (*types.Product, error) {
	current := &product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %s: %w", mw.Name(), err)
		}
		if result == nil {
			p.logger.Debug("product dropped", "stage", mw.Name(), "name", product.Name)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Run processes a batch, preserving order, and returns the kept products
// and the number dropped. A stage error drops that product only.
func (p *Pipeline) Run(products []types.Product) ([]types.Product, int) {
	kept := make([]types.Product, 0, len(products))
	dropped := 0
	for _, product := range products {
		result, err := p.Process(product)
		if err != nil {
			p.logger.Warn("pipeline failed", "name", product.Name, "error", err)
			dropped++
			continue
		}
		if result == nil {
			dropped++
			continue
		}
		kept = append(kept, *result)
	}
	return kept, dropped
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredNameMiddleware drops products without a usable name.
type RequiredNameMiddleware struct{}

func (m *RequiredNameMiddleware) Name() string { return "required_name" }

func (m *RequiredNameMiddleware) Process(p *types.Product) (*types.Product, error) {
	if !p.Valid() {
		return nil, nil
	}
	return p, nil
}

// DedupMiddleware drops products already seen with the same name and price.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(p *types.Product) (*types.Product, error) {
	key := p.Name + "\x00" + p.Price

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return p, nil
}
