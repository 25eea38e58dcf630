// Package driver defines the browser-automation capability consumed by the
// extraction engine and provides a headless Chromium implementation (go-rod)
// and a static DOM implementation for plain HTTP pages and saved HTML files.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
)

// Scope is anything selectors can be evaluated against: a whole page or one element.
type Scope interface {
	// FindAll returns every node matching selector in document order.
	// A malformed or unsupported selector returns a *types.SelectorError.
	FindAll(selector string) ([]Element, error)
}

// Element is one node of a rendered page.
type Element interface {
	Scope

	// Text returns the rendered text of the element, untrimmed.
	Text() (string, error)
}

// Identifiable is implemented by elements that expose a stable node identity,
// so matches of different selectors can be de-duplicated.
type Identifiable interface {
	Identity() string
}

// Driver is one exclusively owned automation session.
type Driver interface {
	Scope

	// Navigate loads url and waits until the page has settled.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the URL of the loaded page, or "" before the first navigation.
	CurrentURL() string

	// SubmitText replaces the value of an input element with text.
	SubmitText(el Element, text string) error

	// PressEnter submits the form owning el and waits for the resulting navigation.
	PressEnter(ctx context.Context, el Element) error

	// Close releases the session. Close is idempotent.
	Close() error

	// Type returns the driver type identifier.
	Type() string
}

// New creates the driver selected by cfg.Driver.
func New(ctx context.Context, cfg config.BrowserConfig, logger *slog.Logger) (Driver, error) {
	switch cfg.Driver {
	case "rod", "":
		return NewRodDriver(ctx, cfg, logger)
	case "http":
		return NewHTMLDriver(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %q", cfg.Driver)
	}
}

// IsXPath reports whether selector is an XPath expression. Anything else is
// treated as a CSS selector.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "..") ||
		strings.HasPrefix(s, "(")
}

// settle waits for d or until ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
