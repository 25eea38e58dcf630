package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ListSeparator splits list values given as a single string, such as
// FLIPSCRAPE_EXTRACTION_CONTAINER_SELECTORS. XPath and CSS selectors contain
// commas, so the comma cannot be used.
const ListSeparator = "||"

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// .env never overrides variables already set in the environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("FLIPSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("flipscrape")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".flipscrape"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(ListSeparator),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides resolve.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.driver", cfg.Browser.Driver)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.proxy", cfg.Browser.Proxy)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.page_load_timeout", cfg.Browser.PageLoadTimeout)
	v.SetDefault("browser.settle_delay", cfg.Browser.SettleDelay)

	v.SetDefault("extraction.max_products", cfg.Extraction.MaxProducts)
	v.SetDefault("extraction.min_text_length", cfg.Extraction.MinTextLength)
	v.SetDefault("extraction.merge_containers", cfg.Extraction.MergeContainers)
	v.SetDefault("extraction.workers", cfg.Extraction.Workers)
	v.SetDefault("extraction.container_selectors", cfg.Extraction.ContainerSelectors)
	v.SetDefault("extraction.fields.name", cfg.Extraction.Fields.Name)
	v.SetDefault("extraction.fields.price", cfg.Extraction.Fields.Price)
	v.SetDefault("extraction.fields.rating", cfg.Extraction.Fields.Rating)
	v.SetDefault("extraction.fields.description", cfg.Extraction.Fields.Description)

	v.SetDefault("navigation.home_url", cfg.Navigation.HomeURL)
	v.SetDefault("navigation.search_query", cfg.Navigation.SearchQuery)
	v.SetDefault("navigation.search_selectors", cfg.Navigation.SearchSelectors)
	v.SetDefault("navigation.fallback_urls", cfg.Navigation.FallbackURLs)

	v.SetDefault("pipeline.normalize", cfg.Pipeline.Normalize)
	v.SetDefault("pipeline.dedup", cfg.Pipeline.Dedup)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.export_format", cfg.Storage.ExportFormat)
	v.SetDefault("storage.export_path", cfg.Storage.ExportPath)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
