package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// RodDriver implements Driver using a headless Chromium via Rod.
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	cfg      config.BrowserConfig
	logger   *slog.Logger
	closed   atomic.Bool
}

// NewRodDriver launches a browser and opens the single page the run works on.
// Every failure here is a driver failure.
func NewRodDriver(ctx context.Context, cfg config.BrowserConfig, logger *slog.Logger) (*RodDriver, error) {
	rd := &RodDriver{
		cfg:    cfg,
		logger: logger.With("component", "rod_driver"),
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.WindowSize != "" {
		l = l.Set("window-size", cfg.WindowSize)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &types.DriverError{Op: "launch", Err: err}
	}
	rd.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &types.DriverError{Op: "connect", Err: err}
	}
	rd.browser = browser

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = rd.Close()
		return nil, &types.DriverError{Op: "open page", Err: err}
	}
	rd.page = page

	if cfg.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent})
		if err != nil {
			rd.logger.Warn("failed to set user agent", "error", err)
		}
	}

	rd.logger.Info("browser driver ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)
	return rd, nil
}

// Navigate loads url, waits for the page to stabilize and applies the settle delay.
func (rd *RodDriver) Navigate(ctx context.Context, url string) error {
	if rd.closed.Load() {
		return &types.DriverError{Op: "navigate", Err: types.ErrDriverClosed}
	}

	start := time.Now()
	page := rd.page.Context(ctx)
	if err := page.Timeout(rd.cfg.PageLoadTimeout).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Timeout(rd.cfg.PageLoadTimeout).WaitStable(300 * time.Millisecond); err != nil {
		rd.logger.Warn("page stability timeout, continuing", "url", url, "error", err)
	}
	if err := settle(ctx, rd.cfg.SettleDelay); err != nil {
		return err
	}

	rd.logger.Debug("navigation complete",
		"url", url,
		"final_url", rd.CurrentURL(),
		"duration", time.Since(start),
	)
	return nil
}

// CurrentURL returns the URL of the page after redirects.
func (rd *RodDriver) CurrentURL() string {
	if rd.closed.Load() {
		return ""
	}
	info, err := rd.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// FindAll evaluates selector against the whole page.
func (rd *RodDriver) FindAll(selector string) ([]Element, error) {
	if rd.closed.Load() {
		return nil, &types.DriverError{Op: "find", Err: types.ErrDriverClosed}
	}
	var (
		els rod.Elements
		err error
	)
	if IsXPath(selector) {
		els, err = rd.page.ElementsX(selector)
	} else {
		els, err = rd.page.Elements(selector)
	}
	if err != nil {
		return nil, &types.SelectorError{Selector: selector, Err: err}
	}
	return wrapRod(els), nil
}

// SubmitText clears el and types text into it.
func (rd *RodDriver) SubmitText(el Element, text string) error {
	re, ok := el.(*rodElement)
	if !ok {
		return fmt.Errorf("submit text: %w", types.ErrUnsupportedSubmit)
	}
	if err := re.el.SelectAllText(); err != nil {
		rd.logger.Debug("select all text failed", "error", err)
	}
	return re.el.Input(text)
}

// PressEnter presses Enter on el and waits for the page it navigates to.
func (rd *RodDriver) PressEnter(ctx context.Context, el Element) error {
	re, ok := el.(*rodElement)
	if !ok {
		return fmt.Errorf("press enter: %w", types.ErrUnsupportedSubmit)
	}

	page := rd.page.Context(ctx).Timeout(rd.cfg.PageLoadTimeout)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := re.el.Type(input.Enter); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}
	wait()

	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		rd.logger.Warn("page stability timeout after submit, continuing", "error", err)
	}
	return settle(ctx, rd.cfg.SettleDelay)
}

// Close shuts down the browser and removes its profile directory.
func (rd *RodDriver) Close() error {
	if !rd.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if rd.browser != nil {
		err = rd.browser.Close()
	}
	if rd.launcher != nil {
		rd.launcher.Cleanup()
	}
	rd.logger.Debug("browser driver closed")
	return err
}

// Type returns the driver type identifier.
func (rd *RodDriver) Type() string {
	return "rod"
}

// rodElement adapts *rod.Element to Element.
type rodElement struct {
	el *rod.Element
}

func wrapRod(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out
}

func (e *rodElement) FindAll(selector string) ([]Element, error) {
	var (
		els rod.Elements
		err error
	)
	if IsXPath(selector) {
		els, err = e.el.ElementsX(selector)
	} else {
		els, err = e.el.Elements(selector)
	}
	if err != nil {
		return nil, &types.SelectorError{Selector: selector, Err: err}
	}
	return wrapRod(els), nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

// Identity returns the backend DOM node id, which is stable across queries.
func (e *rodElement) Identity() string {
	node, err := e.el.Describe(0, false)
	if err != nil || node == nil {
		return ""
	}
	return strconv.Itoa(int(node.BackendNodeID))
}
