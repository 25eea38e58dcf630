package driver

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

const selectorCacheSize = 256

// HTMLDriver implements Driver over a static DOM fetched with net/http or
// loaded from disk. XPath selectors are evaluated with htmlquery and CSS
// selectors with goquery.
type HTMLDriver struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	selectors *lru.Cache[string, compiledSelector]

	mu     sync.RWMutex
	doc    *html.Node
	url    *url.URL
	values map[*html.Node]string
	closed atomic.Bool
}

// HTMLOption configures the HTMLDriver.
type HTMLOption func(*HTMLDriver)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) HTMLOption {
	return func(d *HTMLDriver) { d.client = c }
}

// NewHTMLDriver creates a static DOM driver.
func NewHTMLDriver(cfg config.BrowserConfig, logger *slog.Logger, opts ...HTMLOption) *HTMLDriver {
	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // brotli is handled in decompressReader
	}
	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	// a positive size never fails
	cache, _ := lru.New[string, compiledSelector](selectorCacheSize)

	d := &HTMLDriver{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.PageLoadTimeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "html_driver"),
		selectors: cache,
		values:    make(map[*html.Node]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoadHTML replaces the current document with the HTML read from r.
// baseURL is used to resolve form actions and may be empty.
func (d *HTMLDriver) LoadHTML(r io.Reader, baseURL string) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	var u *url.URL
	if baseURL != "" {
		if u, err = url.Parse(baseURL); err != nil {
			return fmt.Errorf("parse base url: %w", err)
		}
	}
	d.setDocument(doc, u)
	return nil
}

// LoadFile loads a saved HTML page from disk.
func (d *HTMLDriver) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return d.LoadHTML(f, (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String())
}

// Navigate fetches rawURL, resolved against the current page, and parses it.
func (d *HTMLDriver) Navigate(ctx context.Context, rawURL string) error {
	if d.closed.Load() {
		return &types.DriverError{Op: "navigate", Err: types.ErrDriverClosed}
	}
	target, err := d.resolve(rawURL)
	if err != nil {
		return err
	}
	if target.Scheme == "file" {
		return d.LoadFile(target.Path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	return d.do(req)
}

// CurrentURL returns the URL of the loaded document after redirects.
func (d *HTMLDriver) CurrentURL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.url == nil {
		return ""
	}
	return d.url.String()
}

// FindAll evaluates selector against the whole document.
func (d *HTMLDriver) FindAll(selector string) ([]Element, error) {
	if d.closed.Load() {
		return nil, &types.DriverError{Op: "find", Err: types.ErrDriverClosed}
	}
	d.mu.RLock()
	doc := d.doc
	d.mu.RUnlock()
	if doc == nil {
		return nil, nil
	}
	return d.query(doc, selector)
}

// SubmitText records text as the value of an input element.
func (d *HTMLDriver) SubmitText(el Element, text string) error {
	he, ok := el.(*htmlElement)
	if !ok || he.node.Type != html.ElementNode {
		return fmt.Errorf("submit text: %w", types.ErrUnsupportedSubmit)
	}
	d.mu.Lock()
	d.values[he.node] = text
	d.mu.Unlock()
	return nil
}

// PressEnter submits the form that owns el, as a browser would.
func (d *HTMLDriver) PressEnter(ctx context.Context, el Element) error {
	if d.closed.Load() {
		return &types.DriverError{Op: "submit", Err: types.ErrDriverClosed}
	}
	he, ok := el.(*htmlElement)
	if !ok {
		return fmt.Errorf("press enter: %w", types.ErrUnsupportedSubmit)
	}
	form := enclosingForm(he.node)
	if form == nil {
		return fmt.Errorf("press enter: no enclosing form: %w", types.ErrUnsupportedSubmit)
	}

	action, err := d.resolve(htmlquery.SelectAttr(form, "action"))
	if err != nil {
		return err
	}

	d.mu.RLock()
	values := formValues(form, d.values)
	d.mu.RUnlock()

	var req *http.Request
	if strings.EqualFold(htmlquery.SelectAttr(form, "method"), http.MethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		action.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
	}
	if err != nil {
		return err
	}
	return d.do(req)
}

// Close releases idle connections. Close is idempotent.
func (d *HTMLDriver) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		d.client.CloseIdleConnections()
	}
	return nil
}

// Type returns the driver type identifier.
func (d *HTMLDriver) Type() string {
	return "http"
}

func (d *HTMLDriver) do(req *http.Request) error {
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: HTTP %d", req.Method, req.URL, resp.StatusCode)
	}

	reader, err := decompressReader(resp)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", req.URL, err)
	}
	doc, err := html.Parse(reader)
	if err != nil {
		return fmt.Errorf("parse %s: %w", req.URL, err)
	}
	finalURL := req.URL
	if resp.Request != nil {
		finalURL = resp.Request.URL
	}
	d.setDocument(doc, finalURL)

	d.logger.Debug("page loaded",
		"url", req.URL.String(),
		"final_url", finalURL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return nil
}

func (d *HTMLDriver) setDocument(doc *html.Node, u *url.URL) {
	d.mu.Lock()
	d.doc = doc
	d.url = u
	d.values = make(map[*html.Node]string)
	d.mu.Unlock()
}

func (d *HTMLDriver) resolve(rawURL string) (*url.URL, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	d.mu.RLock()
	base := d.url
	d.mu.RUnlock()
	if base == nil {
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}

// compiledSelector holds exactly one of an XPath expression or a CSS matcher.
type compiledSelector struct {
	xpath *xpath.Expr
	css   cascadia.Selector
}

func (d *HTMLDriver) compile(selector string) (compiledSelector, error) {
	if cs, ok := d.selectors.Get(selector); ok {
		return cs, nil
	}
	var cs compiledSelector
	if IsXPath(selector) {
		expr, err := xpath.Compile(selector)
		if err != nil {
			return cs, &types.SelectorError{Selector: selector, Err: err}
		}
		cs.xpath = expr
	} else {
		sel, err := cascadia.Compile(selector)
		if err != nil {
			return cs, &types.SelectorError{Selector: selector, Err: err}
		}
		cs.css = sel
	}
	d.selectors.Add(selector, cs)
	return cs, nil
}

func (d *HTMLDriver) query(top *html.Node, selector string) ([]Element, error) {
	cs, err := d.compile(selector)
	if err != nil {
		return nil, err
	}

	var nodes []*html.Node
	if cs.xpath != nil {
		nodes = htmlquery.QuerySelectorAll(top, cs.xpath)
	} else {
		nodes = goquery.NewDocumentFromNode(top).FindMatcher(cs.css).Nodes
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &htmlElement{node: n, driver: d})
	}
	return out, nil
}

// htmlElement adapts *html.Node to Element.
type htmlElement struct {
	node   *html.Node
	driver *HTMLDriver
}

func (e *htmlElement) FindAll(selector string) ([]Element, error) {
	return e.driver.query(e.node, selector)
}

// Text approximates a browser's rendered text: whitespace collapses and
// block elements start on a new line.
func (e *htmlElement) Text() (string, error) {
	var tw textWriter
	tw.walk(e.node)
	return tw.b.String(), nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// textWriter defers separators until the next word so none lead or trail.
type textWriter struct {
	b     strings.Builder
	space bool
	line  bool
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			w.line = true
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		w.line = true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.line = true
	}
}

func (w *textWriter) text(s string) {
	if s == "" {
		return
	}
	if isSpace(s[0]) {
		w.space = true
	}
	for _, word := range strings.Fields(s) {
		if w.b.Len() > 0 {
			switch {
			case w.line:
				w.b.WriteByte('\n')
			case w.space:
				w.b.WriteByte(' ')
			}
		}
		w.line, w.space = false, false
		w.b.WriteString(word)
		w.space = true
	}
	w.space = isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// Identity is the node address, unique within one parsed document.
func (e *htmlElement) Identity() string {
	return fmt.Sprintf("%p", e.node)
}

func enclosingForm(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "form" {
			return p
		}
	}
	return nil
}

// formValues collects named inputs of form, preferring values set via SubmitText.
func formValues(form *html.Node, typed map[*html.Node]string) url.Values {
	values := url.Values{}
	for _, in := range htmlquery.Find(form, ".//input[@name]") {
		switch strings.ToLower(htmlquery.SelectAttr(in, "type")) {
		case "submit", "button", "image", "reset", "file":
			continue
		case "checkbox", "radio":
			if !hasAttr(in, "checked") {
				continue
			}
		}
		val, ok := typed[in]
		if !ok {
			val = htmlquery.SelectAttr(in, "value")
		}
		values.Add(htmlquery.SelectAttr(in, "name"), val)
	}
	return values
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// decompressReader wraps the body with the decoder matching Content-Encoding.
func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
