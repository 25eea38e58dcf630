package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Metrics bundles Prometheus collectors for a scraping run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry          *prometheus.Registry
	FailuresTotal     *prometheus.CounterVec
	PagesTotal        *prometheus.CounterVec
	ContainersTotal   *prometheus.CounterVec
	ProductsExtracted prometheus.Counter
	ProductsDropped   prometheus.Counter
	ProductsStored    prometheus.Counter
	StoreErrorsTotal  prometheus.Counter
	RunDuration       prometheus.Histogram

	logger *slog.Logger
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipscrape_failures_total",
			Help: "Recovered and fatal failures by kind.",
		},
		[]string{"kind"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipscrape_pages_total",
			Help: "Listing pages extracted, by navigation path.",
		},
		[]string{"path"},
	)
	containers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipscrape_containers_total",
			Help: "Product containers discovered, by winning selector.",
		},
		[]string{"selector"},
	)
	extracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flipscrape_products_extracted_total",
			Help: "Valid products produced by page extraction.",
		},
	)
	dropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flipscrape_products_dropped_total",
			Help: "Assembled products rejected by the name filter or the pipeline.",
		},
	)
	stored := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flipscrape_products_stored_total",
			Help: "Products persisted to storage.",
		},
	)
	storeErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flipscrape_store_errors_total",
			Help: "Products that failed to persist.",
		},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flipscrape_run_duration_seconds",
			Help:    "Wall time of complete scraping runs.",
			Buckets: []float64{5, 10, 20, 30, 60, 120, 300},
		},
	)

	registry.MustRegister(failures, pages, containers, extracted, dropped, stored, storeErrors, runDuration)

	return &Metrics{
		Registry:          registry,
		FailuresTotal:     failures,
		PagesTotal:        pages,
		ContainersTotal:   containers,
		ProductsExtracted: extracted,
		ProductsDropped:   dropped,
		ProductsStored:    stored,
		StoreErrorsTotal:  storeErrors,
		RunDuration:       runDuration,
		logger:            logger.With("component", "metrics"),
	}
}

// IncFailure counts one failure of the given kind.
func (m *Metrics) IncFailure(kind types.FailureKind) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind.String()).Inc()
}

// IncPage counts one extracted page reached via path.
func (m *Metrics) IncPage(path string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(path).Inc()
}

// AddContainers counts n containers matched by selector.
func (m *Metrics) AddContainers(selector string, n int) {
	if m == nil {
		return
	}
	m.ContainersTotal.WithLabelValues(selector).Add(float64(n))
}

// IncExtracted counts one valid product.
func (m *Metrics) IncExtracted() {
	if m == nil {
		return
	}
	m.ProductsExtracted.Inc()
}

// IncDropped counts one rejected product.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.ProductsDropped.Inc()
}

// IncStored counts one persisted product.
func (m *Metrics) IncStored() {
	if m == nil {
		return
	}
	m.ProductsStored.Inc()
}

// IncStoreError counts one failed insert.
func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.Inc()
}

// ObserveRun records the duration of a run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

// Handler returns the exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background.
// The caller shuts it down with the returned server.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
