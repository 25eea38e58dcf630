package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/navigation"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/observability"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/pipeline"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/storage"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

const homePage = `<html><body>
<form action="/search" method="get">
  <input type="text" name="q" class="Pke_EE" placeholder="Search for Products, Brands and More">
  <button type="submit">Search</button>
</form></body></html>`

const listingPage = `<html><body>
<div data-id="MOBGTAGPTB3VS24W">
  <div class="KzDlHZ">Apple iPhone 15 (Black, 128 GB)</div>
  <div class="Nx9bqj">₹65,999</div>
  <div class="XQDdHH">4.6</div>
</div>
<div data-id="MOBGT5F2X7VGZ6UQ">
  <div class="KzDlHZ">POCO M6   5G</div>
  <div class="Nx9bqj">₹9,499</div>
</div>
<div data-id="MOBGT5F2X7VGZ6UQ-dup">
  <div class="KzDlHZ">POCO M6 5G</div>
  <div class="Nx9bqj">₹9,499</div>
</div>
</body></html>`

const emptyPage = `<html><body><p>No results</p></body></html>`

// site serves a home page with a search form, a search results page and one
// category page. Each listing can be switched off.
type site struct {
	searchListing   bool
	categoryListing bool
}

func (s site) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, homePage)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if s.searchListing && r.URL.Query().Get("q") == "electronics" {
			fmt.Fprint(w, listingPage)
			return
		}
		fmt.Fprint(w, emptyPage)
	})
	mux.HandleFunc("/category", func(w http.ResponseWriter, r *http.Request) {
		if s.categoryListing {
			fmt.Fprint(w, listingPage)
			return
		}
		fmt.Fprint(w, emptyPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Browser.Driver = "http"
	cfg.Browser.SettleDelay = 0
	cfg.Navigation.HomeURL = baseURL + "/"
	cfg.Navigation.FallbackURLs = []string{baseURL + "/category"}
	cfg.Storage.Type = "none"
	return cfg
}

// trackingDriver records whether the session was closed.
type trackingDriver struct {
	driver.Driver
	closed      bool
	navigateErr error
}

func (d *trackingDriver) Navigate(ctx context.Context, url string) error {
	if d.navigateErr != nil {
		return d.navigateErr
	}
	return d.Driver.Navigate(ctx, url)
}

func (d *trackingDriver) Close() error {
	d.closed = true
	return d.Driver.Close()
}

func trackingFactory(cfg *config.Config, tracked **trackingDriver, navigateErr error) DriverFactory {
	return func(context.Context) (driver.Driver, error) {
		d := &trackingDriver{Driver: driver.NewHTMLDriver(cfg.Browser, testLogger), navigateErr: navigateErr}
		*tracked = d
		return d, nil
	}
}

// flakyStore fails Ping or the inserts whose 1-based position is listed.
type flakyStore struct {
	*storage.MemoryStorage
	pingErr   error
	failOn    map[int]bool
	attempted int
}

func (s *flakyStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.MemoryStorage.Ping(ctx)
}

func (s *flakyStore) Insert(ctx context.Context, p types.Product) (int64, error) {
	s.attempted++
	if s.failOn[s.attempted] {
		return 0, errors.New("disk full")
	}
	return s.MemoryStorage.Insert(ctx, p)
}

func TestRunSearchPath(t *testing.T) {
	srv := site{searchListing: true, categoryListing: true}.start(t)
	cfg := testConfig(srv.URL)
	store := storage.NewMemoryStorage(testLogger)
	metrics := observability.NewMetrics(testLogger)

	var drv *trackingDriver
	r := New(cfg, store, testLogger,
		WithDriverFactory(trackingFactory(cfg, &drv, nil)),
		WithMetrics(metrics),
		WithClock(func() time.Time { return fixedNow }),
	)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, drv.closed, "driver must be closed after the run")

	require.Equal(t, navigation.PathSearch, report.Path)
	require.Contains(t, report.URL, "/search?")
	require.Equal(t, "//div[@data-id]", report.Selector)
	require.Equal(t, 3, report.Found)
	require.Equal(t, 3, report.Kept, "records are stored as extracted by default")
	require.Equal(t, 0, report.Dropped)
	require.Equal(t, 3, report.Saved)
	require.Equal(t, 0, report.Failed)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Apple iPhone 15 (Black, 128 GB)", all[0].Name)
	require.Equal(t, "4.6", all[0].Rating)
	require.Equal(t, "POCO M6 5G", all[1].Name, "rendered text collapses whitespace")
	require.Equal(t, types.NoRating, all[1].Rating)
	require.True(t, all[1].CreatedAt.Equal(fixedNow))
	require.Equal(t, "POCO M6 5G", all[2].Name)

	require.Equal(t, float64(3), testutil.ToFloat64(metrics.ProductsStored))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.ProductsDropped))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.PagesTotal.WithLabelValues(navigation.PathSearch)))
}

func TestRunFallsBackToCategory(t *testing.T) {
	srv := site{categoryListing: true}.start(t)
	cfg := testConfig(srv.URL)
	store := storage.NewMemoryStorage(testLogger)

	var drv *trackingDriver
	r := New(cfg, store, testLogger, WithDriverFactory(trackingFactory(cfg, &drv, nil)))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, navigation.PathCategory, report.Path)
	require.Equal(t, srv.URL+"/category", report.URL)
	require.Equal(t, 2, report.Attempts)
	require.Equal(t, 3, report.Saved)
}

func TestRunNothingFound(t *testing.T) {
	srv := site{}.start(t)
	cfg := testConfig(srv.URL)
	store := storage.NewMemoryStorage(testLogger)

	var drv *trackingDriver
	r := New(cfg, store, testLogger, WithDriverFactory(trackingFactory(cfg, &drv, nil)))

	report, err := r.Run(context.Background())
	require.NoError(t, err, "an exhausted plan is a degenerate success")
	require.Equal(t, 0, report.Found)
	require.Equal(t, 0, report.Saved)
	require.Empty(t, report.Path)
	require.True(t, drv.closed)

	all, _ := store.ListAll(context.Background())
	require.Empty(t, all)
}

func TestRunPingFailureSkipsDriver(t *testing.T) {
	store := &flakyStore{MemoryStorage: storage.NewMemoryStorage(testLogger), pingErr: errors.New("connection refused")}
	opened := false
	r := New(config.DefaultConfig(), store, testLogger, WithDriverFactory(func(context.Context) (driver.Driver, error) {
		opened = true
		return nil, errors.New("unreachable")
	}))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	var storageErr *types.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.False(t, opened, "driver must not be launched when storage is unavailable")
}

func TestRunInsertFailureIsIsolated(t *testing.T) {
	srv := site{searchListing: true}.start(t)
	cfg := testConfig(srv.URL)
	store := &flakyStore{MemoryStorage: storage.NewMemoryStorage(testLogger), failOn: map[int]bool{1: true}}

	var drv *trackingDriver
	r := New(cfg, store, testLogger, WithDriverFactory(trackingFactory(cfg, &drv, nil)))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 2, report.Saved)

	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 2)
	require.Equal(t, "POCO M6 5G", all[0].Name)
}

func TestRunDriverFailureClosesDriver(t *testing.T) {
	srv := site{searchListing: true}.start(t)
	cfg := testConfig(srv.URL)
	store := storage.NewMemoryStorage(testLogger)

	crash := &types.DriverError{Op: "navigate", Err: errors.New("target crashed")}
	var drv *trackingDriver
	r := New(cfg, store, testLogger, WithDriverFactory(trackingFactory(cfg, &drv, crash)))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	require.True(t, types.IsFatal(err))
	require.True(t, drv.closed, "driver must be closed after a fatal error")
}

func TestRunDriverOpenFailure(t *testing.T) {
	store := storage.NewMemoryStorage(testLogger)
	r := New(config.DefaultConfig(), store, testLogger, WithDriverFactory(func(context.Context) (driver.Driver, error) {
		return nil, &types.DriverError{Op: "launch", Err: errors.New("chromium not found")}
	}))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	require.True(t, types.IsFatal(err))
}

func TestRunExports(t *testing.T) {
	srv := site{searchListing: true}.start(t)
	cfg := testConfig(srv.URL)
	cfg.Storage.ExportFormat = "jsonl"
	cfg.Storage.ExportPath = t.TempDir()
	store := storage.NewMemoryStorage(testLogger)

	var drv *trackingDriver
	r := New(cfg, store, testLogger, WithDriverFactory(trackingFactory(cfg, &drv, nil)))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Storage.ExportPath, "products.jsonl"), report.ExportPath)

	info, err := os.Stat(report.ExportPath)
	require.NoError(t, err)
	require.NotZero(t, info.Size())
}

func TestRunDedupOptIn(t *testing.T) {
	srv := site{searchListing: true}.start(t)
	cfg := testConfig(srv.URL)
	cfg.Pipeline = config.PipelineConfig{Normalize: true, Dedup: true}
	store := storage.NewMemoryStorage(testLogger)
	metrics := observability.NewMetrics(testLogger)

	var drv *trackingDriver
	r := New(cfg, store, testLogger, WithDriverFactory(trackingFactory(cfg, &drv, nil)), WithMetrics(metrics))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Found)
	require.Equal(t, 2, report.Kept)
	require.Equal(t, 1, report.Dropped)
	require.Equal(t, 2, report.Saved)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ProductsDropped))
}

// priceFilter drops products at one price.
type priceFilter string

func (f priceFilter) Name() string { return "price_filter" }

func (f priceFilter) Process(p *types.Product) (*types.Product, error) {
	if p.Price == string(f) {
		return nil, nil
	}
	return p, nil
}

func TestRunCustomPipeline(t *testing.T) {
	srv := site{searchListing: true}.start(t)
	cfg := testConfig(srv.URL)
	store := storage.NewMemoryStorage(testLogger)

	custom := pipeline.New(testLogger)
	custom.Use(priceFilter("₹9,499"))

	var drv *trackingDriver
	r := New(cfg, store, testLogger,
		WithDriverFactory(trackingFactory(cfg, &drv, nil)),
		WithPipeline(custom),
	)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Dropped)
	require.Equal(t, 1, report.Saved)

	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 1)
	require.Equal(t, "Apple iPhone 15 (Black, 128 GB)", all[0].Name)
}
