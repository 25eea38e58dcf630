package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Browser.Driver != "rod" && cfg.Browser.Driver != "http" {
		return fmt.Errorf("browser.driver must be 'rod' or 'http', got %q", cfg.Browser.Driver)
	}
	if cfg.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("browser.page_load_timeout must be > 0")
	}
	if cfg.Browser.SettleDelay < 0 {
		return fmt.Errorf("browser.settle_delay must be >= 0")
	}
	if cfg.Browser.Proxy != "" {
		if _, err := url.Parse(cfg.Browser.Proxy); err != nil {
			return fmt.Errorf("invalid browser.proxy %q: %w", cfg.Browser.Proxy, err)
		}
	}

	if cfg.Extraction.MaxProducts < 1 {
		return fmt.Errorf("extraction.max_products must be >= 1, got %d", cfg.Extraction.MaxProducts)
	}
	if cfg.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction.min_text_length must be >= 0, got %d", cfg.Extraction.MinTextLength)
	}
	if cfg.Extraction.Workers < 1 {
		return fmt.Errorf("extraction.workers must be >= 1, got %d", cfg.Extraction.Workers)
	}
	if err := validateChain("extraction.container_selectors", cfg.Extraction.ContainerSelectors); err != nil {
		return err
	}
	if err := validateChain("extraction.fields.name", cfg.Extraction.Fields.Name); err != nil {
		return err
	}
	if err := validateChain("extraction.fields.price", cfg.Extraction.Fields.Price); err != nil {
		return err
	}
	if err := validateChain("extraction.fields.rating", cfg.Extraction.Fields.Rating); err != nil {
		return err
	}
	if err := validateChain("extraction.fields.description", cfg.Extraction.Fields.Description); err != nil {
		return err
	}

	if err := validateChain("navigation.search_selectors", cfg.Navigation.SearchSelectors); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Navigation.SearchQuery) == "" {
		return fmt.Errorf("navigation.search_query must not be empty")
	}
	// an empty home_url skips the landing step
	if cfg.Navigation.HomeURL != "" {
		if err := ValidateURL(cfg.Navigation.HomeURL); err != nil {
			return fmt.Errorf("navigation.home_url: %w", err)
		}
	}
	for _, rawURL := range cfg.Navigation.FallbackURLs {
		if err := ValidateURL(rawURL); err != nil {
			return fmt.Errorf("navigation.fallback_urls %q: %w", rawURL, err)
		}
	}

	validStorageTypes := map[string]bool{
		"sqlite": true, "mongodb": true, "none": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: sqlite, mongodb, none)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "sqlite" && cfg.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for sqlite storage")
	}
	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
	}
	switch cfg.Storage.ExportFormat {
	case "", "json", "jsonl", "csv":
	default:
		return fmt.Errorf("storage.export_format %q is not supported (valid: json, jsonl, csv)", cfg.Storage.ExportFormat)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

func validateChain(key string, chain []string) error {
	if len(chain) == 0 {
		return fmt.Errorf("%s must list at least one selector", key)
	}
	for i, sel := range chain {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("%s[%d] is empty", key, i)
		}
	}
	return nil
}

// ValidateURL checks if a URL string is valid for navigation.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
