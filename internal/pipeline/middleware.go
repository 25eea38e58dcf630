package pipeline

import (
	"html"
	"strings"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// WhitespaceMiddleware decodes leftover HTML entities and collapses runs of
// whitespace in every text field. Sentinels pass through unchanged.
type WhitespaceMiddleware struct{}

func (m *WhitespaceMiddleware) Name() string { return "whitespace" }

func (m *WhitespaceMiddleware) Process(p *types.Product) (*types.Product, error) {
	out := *p
	for _, f := range types.Fields {
		if !out.Available(f) {
			continue
		}
		cleaned := html.UnescapeString(out.Get(f))
		cleaned = strings.Join(strings.Fields(cleaned), " ")
		out = out.With(f, cleaned)
	}
	return &out, nil
}

// SentinelMiddleware replaces empty fields with their sentinel.
type SentinelMiddleware struct{}

func (m *SentinelMiddleware) Name() string { return "sentinel" }

func (m *SentinelMiddleware) Process(p *types.Product) (*types.Product, error) {
	out := *p
	for _, f := range types.Fields {
		if strings.TrimSpace(out.Get(f)) == "" {
			out = out.With(f, f.Sentinel())
		}
	}
	return &out, nil
}
