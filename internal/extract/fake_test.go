package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

var errBadSelector = errors.New("unsupported selector syntax")

// fakeNode is an in-memory Element. Selector lookups are exact string matches.
type fakeNode struct {
	id       string
	text     string
	children map[string][]driver.Element
	fail     map[string]error
	explode  map[string]bool
}

func node(text string) *fakeNode {
	return &fakeNode{text: text}
}

func (n *fakeNode) with(selector string, els ...driver.Element) *fakeNode {
	if n.children == nil {
		n.children = make(map[string][]driver.Element)
	}
	n.children[selector] = append(n.children[selector], els...)
	return n
}

func (n *fakeNode) failing(selector string, err error) *fakeNode {
	if n.fail == nil {
		n.fail = make(map[string]error)
	}
	n.fail[selector] = err
	return n
}

func (n *fakeNode) panicking(selector string) *fakeNode {
	if n.explode == nil {
		n.explode = make(map[string]bool)
	}
	n.explode[selector] = true
	return n
}

func (n *fakeNode) FindAll(selector string) ([]driver.Element, error) {
	if n.explode[selector] {
		panic("node is detached")
	}
	if err := n.fail[selector]; err != nil {
		return nil, &types.SelectorError{Selector: selector, Err: err}
	}
	return n.children[selector], nil
}

func (n *fakeNode) Text() (string, error) { return n.text, nil }

func (n *fakeNode) Identity() string { return n.id }

// fakePage is an in-memory page that records which selectors were evaluated.
type fakePage struct {
	mu      sync.Mutex
	matches map[string][]driver.Element
	fail    map[string]error
	calls   []string
}

func newPage() *fakePage {
	return &fakePage{matches: make(map[string][]driver.Element), fail: make(map[string]error)}
}

func (p *fakePage) FindAll(selector string) ([]driver.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, selector)
	if err := p.fail[selector]; err != nil {
		return nil, err
	}
	return p.matches[selector], nil
}

const (
	selTile    = "div.tile"
	selCard    = "div.card"
	selName    = "a.name"
	selAltName = "div.title"
	selPrice   = "div.price"
	selRating  = "div.rating"
	selDesc    = "ul.specs"
	selAltDesc = "div.desc"
)

func testExtractionConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		MaxProducts:        20,
		MinTextLength:      2,
		Workers:            1,
		ContainerSelectors: []string{selTile, selCard},
		Fields: config.FieldSelectors{
			Name:        []string{selName, selAltName},
			Price:       []string{selPrice},
			Rating:      []string{selRating},
			Description: []string{selDesc, selAltDesc},
		},
	}
}

func newTestExtractor(cfg config.ExtractionConfig, opts ...Option) *Extractor {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(cfg, testLogger, opts...)
}

// tile builds a product container with a name and price and nothing else.
func tile(i int) *fakeNode {
	return node("").
		with(selName, node(fmt.Sprintf("Phone %02d", i))).
		with(selPrice, node(fmt.Sprintf("₹%d,999", 10+i)))
}

func tiles(n int) []driver.Element {
	out := make([]driver.Element, n)
	for i := range out {
		out[i] = tile(i + 1)
	}
	return out
}
