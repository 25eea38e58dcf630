package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for flipscrape.
type Config struct {
	Browser    BrowserConfig    `mapstructure:"browser"    yaml:"browser"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Navigation NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"   yaml:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
}

// BrowserConfig controls the automation driver.
type BrowserConfig struct {
	Driver          string        `mapstructure:"driver"            yaml:"driver"` // rod, http
	Headless        bool          `mapstructure:"headless"          yaml:"headless"`
	NoSandbox       bool          `mapstructure:"no_sandbox"        yaml:"no_sandbox"`
	Bin             string        `mapstructure:"bin"               yaml:"bin"`
	Proxy           string        `mapstructure:"proxy"             yaml:"proxy"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	WindowSize      string        `mapstructure:"window_size"       yaml:"window_size"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"      yaml:"settle_delay"`
}

// ExtractionConfig holds the selector chains and per-page policy.
type ExtractionConfig struct {
	MaxProducts        int            `mapstructure:"max_products"        yaml:"max_products"`
	MinTextLength      int            `mapstructure:"min_text_length"     yaml:"min_text_length"`
	MergeContainers    bool           `mapstructure:"merge_containers"    yaml:"merge_containers"`
	Workers            int            `mapstructure:"workers"             yaml:"workers"`
	ContainerSelectors []string       `mapstructure:"container_selectors" yaml:"container_selectors"`
	Fields             FieldSelectors `mapstructure:"fields"              yaml:"fields"`
}

// FieldSelectors holds one ordered selector chain per product field.
type FieldSelectors struct {
	Name        []string `mapstructure:"name"        yaml:"name"`
	Price       []string `mapstructure:"price"       yaml:"price"`
	Rating      []string `mapstructure:"rating"      yaml:"rating"`
	Description []string `mapstructure:"description" yaml:"description"`
}

// NavigationConfig controls how listing pages are reached.
type NavigationConfig struct {
	HomeURL         string   `mapstructure:"home_url"         yaml:"home_url"`
	SearchQuery     string   `mapstructure:"search_query"     yaml:"search_query"`
	SearchSelectors []string `mapstructure:"search_selectors" yaml:"search_selectors"`
	FallbackURLs    []string `mapstructure:"fallback_urls"    yaml:"fallback_urls"`
}

// PipelineConfig selects the optional post-extraction stages. With both off,
// records are stored exactly as extracted.
type PipelineConfig struct {
	Normalize bool `mapstructure:"normalize" yaml:"normalize"`
	Dedup     bool `mapstructure:"dedup"     yaml:"dedup"`
}

// StorageConfig controls persistence and export of products.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // sqlite, mongodb, none
	DSN             string `mapstructure:"dsn"              yaml:"dsn"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	ExportFormat    string `mapstructure:"export_format"    yaml:"export_format"` // json, jsonl, csv
	ExportPath      string `mapstructure:"export_path"      yaml:"export_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config targeting the Flipkart electronics listings.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Driver:          "rod",
			Headless:        true,
			NoSandbox:       true,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowSize:      "1920,1080",
			PageLoadTimeout: 10 * time.Second,
			SettleDelay:     3 * time.Second,
		},
		Extraction: ExtractionConfig{
			MaxProducts:   20,
			MinTextLength: 2,
			Workers:       1,
			ContainerSelectors: []string{
				"//div[contains(@class,'slAVV4')]",
				"//div[@data-id]",
				"//div[contains(@class,'_1AtVbE')]",
				"//div[contains(@class,'_13oc-S')]",
				"//div[contains(@class,'_2kHMtA')]",
				"//a[contains(@class,'CGtC98')]",
				"//div[contains(@class,'yKfJKb')]",
			},
			Fields: FieldSelectors{
				Name: []string{
					".//a[contains(@class,'wjcEIp')]",
					".//div[contains(@class,'KzDlHZ')]",
					".//div[contains(@class,'_4rR01T')]",
				},
				Price: []string{
					".//div[contains(@class,'Nx9bqj')]",
					".//div[contains(@class,'_30jeq3')]",
				},
				Rating: []string{
					".//div[contains(@class,'XQDdHH')]",
					".//div[contains(@class,'_3LWZlK')]",
				},
				Description: []string{
					".//ul[contains(@class,'G4BRas')]",
					".//div[contains(@class,'yKfJKb')]",
					".//div[contains(@class,'_3Djpdu')]",
				},
			},
		},
		Navigation: NavigationConfig{
			HomeURL:     "https://www.flipkart.com",
			SearchQuery: "electronics",
			SearchSelectors: []string{
				"//input[@name='q']",
				"//input[@placeholder='Search for Products, Brands and More']",
				"//input[@class='Pke_EE']",
				"//input[contains(@class, 'search')]",
			},
			FallbackURLs: []string{
				"https://www.flipkart.com/electronics/pr?sid=6bo%2Cg0v&marketplace=FLIPKART",
				"https://www.flipkart.com/electronics-store",
				"https://www.flipkart.com/mobiles/pr?sid=tyy%2C4io&marketplace=FLIPKART",
				"https://www.flipkart.com/search?q=electronics&otracker=search&otracker1=search&marketplace=FLIPKART",
			},
		},
		Storage: StorageConfig{
			Type:            "sqlite",
			DSN:             "./output/products.db",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "flipscrape",
			MongoCollection: "products",
			ExportPath:      "./output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
