// ABOUTME: Configuration loading and parsing for chase-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete chase-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Provider ProviderConfig `yaml:"provider"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AnalyzerConfig holds settings for the set analysis adapter.
// The endpoint URLs are overridable so tests can point at local fixtures.
type AnalyzerConfig struct {
	PriceChartingURL string `yaml:"pricecharting_url"`
	EbayURL          string `yaml:"ebay_url"`
	TCGPlayerURL     string `yaml:"tcgplayer_url"`

	RequestTimeout time.Duration `yaml:"-"`
	CacheTTL       time.Duration `yaml:"-"`
	CacheSize      int           `yaml:"cache_size"`

	// Raw string values for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
	CacheTTLRaw       string `yaml:"cache_ttl"`
}

// ProviderConfig selects and configures the explanation provider backend.
type ProviderConfig struct {
	// Name selects the backend: "anthropic", "openai", or "canned"
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied by Load when the corresponding field is absent.
const (
	DefaultHTTPAddr         = "localhost:8080"
	DefaultPriceChartingURL = "https://www.pricecharting.com"
	DefaultEbayURL          = "https://www.ebay.com"
	DefaultTCGPlayerURL     = "https://www.tcgplayer.com"
	DefaultRequestTimeout   = 10 * time.Second
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheSize        = 1024
	DefaultProviderName     = "canned"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file exists. The canned provider needs no credentials, so the
// zero-config gateway is fully functional.
func Default() *Config {
	cfg := &Config{}
	// An empty config has no raw durations to parse and passes validation.
	_ = cfg.finish()
	return cfg
}

// finish applies defaults, parses durations, and validates.
func (c *Config) finish() error {
	c.applyDefaults()
	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset fields with the package defaults.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Analyzer.PriceChartingURL == "" {
		c.Analyzer.PriceChartingURL = DefaultPriceChartingURL
	}
	if c.Analyzer.EbayURL == "" {
		c.Analyzer.EbayURL = DefaultEbayURL
	}
	if c.Analyzer.TCGPlayerURL == "" {
		c.Analyzer.TCGPlayerURL = DefaultTCGPlayerURL
	}
	if c.Analyzer.CacheSize == 0 {
		c.Analyzer.CacheSize = DefaultCacheSize
	}
	if c.Provider.Name == "" {
		c.Provider.Name = DefaultProviderName
	}
	if c.Provider.APIKey == "" {
		c.Provider.APIKey = os.Getenv("AI_API_KEY")
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch c.Provider.Name {
	case "anthropic", "openai":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required for provider %q (or set AI_API_KEY)", c.Provider.Name)
		}
	case "canned":
	default:
		return fmt.Errorf("provider.name must be one of anthropic, openai, canned (got %q)", c.Provider.Name)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Analyzer.RequestTimeout = DefaultRequestTimeout
	if cfg.Analyzer.RequestTimeoutRaw != "" {
		cfg.Analyzer.RequestTimeout, err = time.ParseDuration(cfg.Analyzer.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Analyzer.RequestTimeoutRaw, err)
		}
	}

	cfg.Analyzer.CacheTTL = DefaultCacheTTL
	if cfg.Analyzer.CacheTTLRaw != "" {
		cfg.Analyzer.CacheTTL, err = time.ParseDuration(cfg.Analyzer.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache_ttl %q: %w", cfg.Analyzer.CacheTTLRaw, err)
		}
	}

	return nil
}
