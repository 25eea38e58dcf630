// Package navigation reaches a listing page with products: a keyword search
// first, then an ordered list of category URLs.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/extract"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/observability"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// State is a step of the navigation plan.
type State int

const (
	StateSearchAttempt State = iota
	StateCategoryFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSearchAttempt:
		return "search_attempt"
	case StateCategoryFallback:
		return "category_fallback"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Paths by which products were reached.
const (
	PathSearch   = "search"
	PathCategory = "category"
)

// PageExtractor extracts products from the currently loaded page.
type PageExtractor interface {
	ExtractPage(scope driver.Scope) (extract.PageResult, error)
}

// Attempt records one navigation action.
type Attempt struct {
	State    State
	URL      string
	Products int
	Err      error
}

// Outcome is the result of a navigation run. An empty Products slice with a
// nil error means every option was exhausted.
type Outcome struct {
	Products []types.Product
	Path     string
	URL      string
	Selector string
	Attempts []Attempt
}

// Navigator walks the navigation plan against one driver session.
type Navigator struct {
	cfg       config.NavigationConfig
	extractor PageExtractor
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures the Navigator.
type Option func(*Navigator)

// WithMetrics records navigation failures and extracted pages on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(n *Navigator) { n.metrics = m }
}

// New creates a Navigator for the given plan.
func New(cfg config.NavigationConfig, extractor PageExtractor, logger *slog.Logger, opts ...Option) *Navigator {
	n := &Navigator{
		cfg:       cfg,
		extractor: extractor,
		logger:    logger.With("component", "navigator"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run lands on the home page, tries the search and falls back to category
// URLs until a page yields products. Only driver failures and cancellation
// of ctx are returned as errors.
func (n *Navigator) Run(ctx context.Context, drv driver.Driver) (Outcome, error) {
	var out Outcome

	if n.cfg.HomeURL != "" {
		n.logger.Info("landing on home page", "url", n.cfg.HomeURL)
		if err := drv.Navigate(ctx, n.cfg.HomeURL); err != nil {
			if ferr := n.fatal(ctx, err); ferr != nil {
				return out, ferr
			}
			n.failed(&types.NavigationError{URL: n.cfg.HomeURL, Err: err})
		}
	}

	state := StateSearchAttempt
	for state != StateDone {
		var err error
		switch state {
		case StateSearchAttempt:
			err = n.search(ctx, drv, &out)
			if err == nil && len(out.Products) == 0 {
				state = StateCategoryFallback
				n.logger.Info("search yielded no products, trying category pages",
					"urls", len(n.cfg.FallbackURLs))
				continue
			}
		case StateCategoryFallback:
			err = n.fallback(ctx, drv, &out)
		}
		if err != nil {
			return out, err
		}
		state = StateDone
	}

	if len(out.Products) == 0 {
		n.logger.Warn("navigation exhausted without products", "attempts", len(out.Attempts))
	} else {
		n.logger.Info("navigation complete",
			"path", out.Path,
			"url", out.URL,
			"products", len(out.Products),
		)
	}
	return out, nil
}

// search submits the query through the first search input found.
func (n *Navigator) search(ctx context.Context, drv driver.Driver, out *Outcome) error {
	inputs, sel, err := extract.FirstElements(drv, extract.Chain(n.cfg.SearchSelectors), func(s string, err error) {
		n.logger.Debug("search input selector missed", "selector", s, "error", err)
	})
	if err != nil {
		if ferr := n.fatal(ctx, err); ferr != nil {
			return ferr
		}
	}
	if len(inputs) == 0 {
		err := &types.NavigationError{URL: drv.CurrentURL(), Err: types.ErrNoSearchInput}
		out.Attempts = append(out.Attempts, Attempt{State: StateSearchAttempt, URL: drv.CurrentURL(), Err: err})
		n.failed(err)
		return nil
	}

	n.logger.Info("submitting search", "selector", sel, "query", n.cfg.SearchQuery)
	input := inputs[0]
	err = drv.SubmitText(input, n.cfg.SearchQuery)
	if err == nil {
		err = drv.PressEnter(ctx, input)
	}
	if err != nil {
		if ferr := n.fatal(ctx, err); ferr != nil {
			return ferr
		}
		navErr := &types.NavigationError{URL: drv.CurrentURL(), Err: fmt.Errorf("submit search: %w", err)}
		out.Attempts = append(out.Attempts, Attempt{State: StateSearchAttempt, URL: drv.CurrentURL(), Err: navErr})
		n.failed(navErr)
		return nil
	}

	return n.extract(ctx, drv, StateSearchAttempt, PathSearch, drv.CurrentURL(), out)
}

// fallback visits category URLs in order until one yields products.
func (n *Navigator) fallback(ctx context.Context, drv driver.Driver, out *Outcome) error {
	for i, url := range n.cfg.FallbackURLs {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.logger.Info("trying category page", "attempt", i+1, "url", url)

		if err := drv.Navigate(ctx, url); err != nil {
			if ferr := n.fatal(ctx, err); ferr != nil {
				return ferr
			}
			navErr := &types.NavigationError{URL: url, Err: err}
			out.Attempts = append(out.Attempts, Attempt{State: StateCategoryFallback, URL: url, Err: navErr})
			n.failed(navErr)
			continue
		}

		if err := n.extract(ctx, drv, StateCategoryFallback, PathCategory, url, out); err != nil {
			return err
		}
		if len(out.Products) > 0 {
			return nil
		}
	}
	return nil
}

// extract runs page extraction and records the attempt. It fills out when
// the page yields products.
func (n *Navigator) extract(ctx context.Context, drv driver.Driver, state State, path, url string, out *Outcome) error {
	res, err := n.extractor.ExtractPage(drv)
	if err != nil {
		if ferr := n.fatal(ctx, err); ferr != nil {
			return ferr
		}
	}

	attempt := Attempt{State: state, URL: url, Products: len(res.Products)}
	switch {
	case err != nil:
		attempt.Err = &types.NavigationError{URL: url, Err: err}
	case res.Attempted == 0:
		attempt.Err = &types.NavigationError{URL: url, Err: types.ErrNoContainers}
	case len(res.Products) == 0:
		attempt.Err = &types.NavigationError{URL: url, Err: errors.New("no valid products")}
	}
	out.Attempts = append(out.Attempts, attempt)

	if attempt.Err != nil {
		n.failed(attempt.Err)
		return nil
	}

	n.metrics.IncPage(path)
	out.Products = res.Products
	out.Path = path
	out.URL = url
	out.Selector = res.Selector
	return nil
}

// fatal returns the error that must end the run, or nil when err is recoverable.
func (n *Navigator) fatal(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if types.IsFatal(err) {
		return err
	}
	return nil
}

func (n *Navigator) failed(err error) {
	n.logger.Warn("navigation action failed", "error", err)
	n.metrics.IncFailure(types.KindNavigationFailure)
}
