package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dario.cat/mergo"
	"github.com/spf13/cobra"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/observability"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/scrape"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/storage"
)

var (
	cfgFile      string
	verbose      bool
	driverName   string
	headed       bool
	query        string
	maxProducts  int
	workers      int
	storageType  string
	dsn          string
	exportFormat string
	exportPath   string
	withMetrics  bool
	dedup        bool
	normalize    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flipscrape",
		Short: "flipscrape: resilient Flipkart electronics product extractor",
		Long: `flipscrape drives a browser to Flipkart, searches for a category (or falls back
to known category pages) and extracts product name, price, rating and
description from the listing tiles.

Every field and container is located through an ordered chain of XPath/CSS
selectors, so markup churn degrades results instead of breaking the run.
Products are stored in SQLite or MongoDB and can be exported as JSON, JSONL
or CSV.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(productsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(manCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scraping session and store the products",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}

	cmd.Flags().StringVar(&driverName, "driver", "", "automation driver: rod, http")
	cmd.Flags().BoolVar(&headed, "headed", false, "show the browser window")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search query")
	cmd.Flags().IntVarP(&maxProducts, "max", "m", 0, "maximum products per page")
	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "containers assembled concurrently")
	cmd.Flags().StringVar(&storageType, "storage", "", "storage backend: sqlite, mongodb, none")
	cmd.Flags().StringVar(&dsn, "dsn", "", "sqlite DSN")
	cmd.Flags().StringVarP(&exportFormat, "format", "f", "", "export format: json, jsonl, csv")
	cmd.Flags().StringVarP(&exportPath, "output", "o", "", "export directory")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "serve Prometheus metrics during the run")
	cmd.Flags().BoolVar(&dedup, "dedup", false, "drop repeated name and price pairs before storing")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "collapse whitespace and leftover entities before storing")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyCLIOverrides(cmd, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting scrape",
		"driver", cfg.Browser.Driver,
		"query", cfg.Navigation.SearchQuery,
		"max_products", cfg.Extraction.MaxProducts,
		"storage", store.Name(),
	)

	runner := scrape.New(cfg, store, logger, scrape.WithMetrics(metrics))
	report, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	printReport(report)
	return nil
}

func printReport(r *scrape.Report) {
	fmt.Printf("\n✅ Scrape complete in %s\n", r.Duration.Round(time.Millisecond))
	if r.Found == 0 {
		fmt.Printf("   No products found after %d navigation attempts.\n", r.Attempts)
		fmt.Println("\n💡 The page markup may have changed. Save a listing page and try:")
		fmt.Println("     flipscrape extract page.html -v")
		return
	}
	fmt.Printf("   Path:      %s (%s)\n", r.Path, r.URL)
	fmt.Printf("   Selector:  %s\n", r.Selector)
	fmt.Printf("   Products:  %d found, %d kept, %d dropped\n", r.Found, r.Kept, r.Dropped)
	fmt.Printf("   Stored:    %d saved, %d failed\n", r.Saved, r.Failed)
	if r.ExportPath != "" {
		fmt.Printf("   Output:    %s\n", r.ExportPath)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("flipscrape %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Println("configuration is valid")
			return nil
		},
	})
	return cmd
}

func printConfig(cfg *config.Config) {
	fmt.Printf("Browser:\n")
	fmt.Printf("  Driver:            %s\n", cfg.Browser.Driver)
	fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
	fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
	fmt.Printf("  Page Load Timeout: %s\n", cfg.Browser.PageLoadTimeout)
	fmt.Printf("  Settle Delay:      %s\n", cfg.Browser.SettleDelay)
	fmt.Printf("\nExtraction:\n")
	fmt.Printf("  Max Products:      %d\n", cfg.Extraction.MaxProducts)
	fmt.Printf("  Min Text Length:   %d\n", cfg.Extraction.MinTextLength)
	fmt.Printf("  Merge Containers:  %v\n", cfg.Extraction.MergeContainers)
	fmt.Printf("  Workers:           %d\n", cfg.Extraction.Workers)
	fmt.Printf("  Containers:        %d selectors\n", len(cfg.Extraction.ContainerSelectors))
	fmt.Printf("  Fields:            name=%d price=%d rating=%d description=%d selectors\n",
		len(cfg.Extraction.Fields.Name), len(cfg.Extraction.Fields.Price),
		len(cfg.Extraction.Fields.Rating), len(cfg.Extraction.Fields.Description))
	fmt.Printf("\nNavigation:\n")
	fmt.Printf("  Home URL:          %s\n", cfg.Navigation.HomeURL)
	fmt.Printf("  Search Query:      %s\n", cfg.Navigation.SearchQuery)
	fmt.Printf("  Search Inputs:     %d selectors\n", len(cfg.Navigation.SearchSelectors))
	fmt.Printf("  Fallback URLs:     %d configured\n", len(cfg.Navigation.FallbackURLs))
	fmt.Printf("\nPipeline:\n")
	fmt.Printf("  Normalize:         %v\n", cfg.Pipeline.Normalize)
	fmt.Printf("  Dedup:             %v\n", cfg.Pipeline.Dedup)
	fmt.Printf("\nStorage:\n")
	fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
	switch cfg.Storage.Type {
	case "sqlite":
		fmt.Printf("  DSN:               %s\n", cfg.Storage.DSN)
	case "mongodb":
		fmt.Printf("  Database:          %s.%s\n", cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection)
	}
	if cfg.Storage.ExportFormat != "" {
		fmt.Printf("  Export:            %s -> %s\n", cfg.Storage.ExportFormat, cfg.Storage.ExportPath)
	}
	fmt.Printf("\nMetrics:\n")
	fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
	fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides merges flags the user set explicitly over the config.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) error {
	overrides := config.Config{
		Browser:    config.BrowserConfig{Driver: strings.ToLower(driverName)},
		Extraction: config.ExtractionConfig{MaxProducts: maxProducts, Workers: workers},
		Navigation: config.NavigationConfig{SearchQuery: query},
		Storage: config.StorageConfig{
			Type:         strings.ToLower(storageType),
			DSN:          dsn,
			ExportFormat: strings.ToLower(exportFormat),
			ExportPath:   exportPath,
		},
	}
	if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}

	// zero values are valid for booleans, so only explicit flags count
	flags := cmd.Flags()
	if flags.Changed("headed") {
		cfg.Browser.Headless = !headed
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled = withMetrics
	}
	if flags.Changed("dedup") {
		cfg.Pipeline.Dedup = dedup
	}
	if flags.Changed("normalize") {
		cfg.Pipeline.Normalize = normalize
	}
	return nil
}
