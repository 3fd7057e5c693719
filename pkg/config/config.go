package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CurrencyContext selects the locale and timezone the browser presents to
// the marketplace so prices render in the wanted currency.
type CurrencyContext struct {
	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone"`
}

// ScraperConfig holds general scraper settings.
type ScraperConfig struct {
	Headless       bool `yaml:"headless"`
	RetryCount     int  `yaml:"retry_count"`
	DelayMinMs     int  `yaml:"delay_min_ms"`
	DelayMaxMs     int  `yaml:"delay_max_ms"`
	BackoffMinMs   int  `yaml:"backoff_min_ms"`
	BackoffMaxMs   int  `yaml:"backoff_max_ms"`
	PageTimeoutSec int  `yaml:"page_timeout_sec"`
	ScrollDelayMs  int  `yaml:"scroll_delay_ms"`
	RequestsPerMin int  `yaml:"requests_per_min"`
}

// FabConfig holds settings specific to the Fab marketplace.
type FabConfig struct {
	BaseURL    string                     `yaml:"base_url"`
	Currencies map[string]CurrencyContext `yaml:"currencies"`
}

// TrackerConfig holds synchronization behavior.
type TrackerConfig struct {
	DefaultCurrency string `yaml:"default_currency"`
	IdlePollMin     int    `yaml:"idle_poll_min"` // wait when nothing is scheduled
}

// NotifyConfig holds notification delivery settings. The webhook URL is a
// secret and can come from the environment instead of the file.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Config is the complete structure of the config.yml file.
type Config struct {
	Scraper  ScraperConfig `yaml:"scraper"`
	Fab      FabConfig     `yaml:"fab"`
	Tracker  TrackerConfig `yaml:"tracker"`
	Notify   NotifyConfig  `yaml:"notify"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Server struct {
		Port   string `yaml:"port"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"server"`
}

// LoadConfig reads config.yml and applies environment overrides. A .env file
// next to the binary is honored when present.
func LoadConfig(filepath string) *Config {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(filepath)
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Fatalf("Error unmarshalling config YAML: %v", err)
	}

	if v := os.Getenv("FAB_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("FAB_API_KEY"); v != "" {
		cfg.Server.ApiKey = v
	}
	if v := os.Getenv("FAB_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Scraper.RetryCount <= 0 {
		c.Scraper.RetryCount = 3
	}
	if c.Scraper.DelayMinMs <= 0 {
		c.Scraper.DelayMinMs = 2000
	}
	if c.Scraper.DelayMaxMs < c.Scraper.DelayMinMs {
		c.Scraper.DelayMaxMs = c.Scraper.DelayMinMs + 3000
	}
	if c.Scraper.BackoffMinMs <= 0 {
		c.Scraper.BackoffMinMs = 5000
	}
	if c.Scraper.BackoffMaxMs < c.Scraper.BackoffMinMs {
		c.Scraper.BackoffMaxMs = c.Scraper.BackoffMinMs + 5000
	}
	if c.Scraper.PageTimeoutSec <= 0 {
		c.Scraper.PageTimeoutSec = 60
	}
	if c.Scraper.ScrollDelayMs <= 0 {
		c.Scraper.ScrollDelayMs = 1000
	}
	if c.Scraper.RequestsPerMin <= 0 {
		c.Scraper.RequestsPerMin = 12
	}
	if c.Fab.BaseURL == "" {
		c.Fab.BaseURL = "https://www.fab.com"
	}
	if len(c.Fab.Currencies) == 0 {
		c.Fab.Currencies = map[string]CurrencyContext{
			"USD": {Locale: "en-US", Timezone: "America/New_York"},
			"EUR": {Locale: "fr-FR", Timezone: "Europe/Paris"},
		}
	}
	if c.Tracker.DefaultCurrency == "" {
		c.Tracker.DefaultCurrency = "USD"
	}
	if c.Tracker.IdlePollMin <= 0 {
		c.Tracker.IdlePollMin = 60
	}
	if c.Database.Path == "" {
		c.Database.Path = "tracker.db"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
}

// DelayRange returns the randomized-delay bounds as durations.
func (c *ScraperConfig) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.DelayMinMs) * time.Millisecond,
		time.Duration(c.DelayMaxMs) * time.Millisecond
}

// BackoffRange returns the retry-backoff bounds as durations.
func (c *ScraperConfig) BackoffRange() (time.Duration, time.Duration) {
	return time.Duration(c.BackoffMinMs) * time.Millisecond,
		time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// CurrencyContext returns the browser context for a currency, falling back
// to the default currency's context for unknown codes.
func (c *FabConfig) CurrencyContext(currency, defaultCurrency string) CurrencyContext {
	if ctx, ok := c.Currencies[currency]; ok {
		return ctx
	}
	return c.Currencies[defaultCurrency]
}
