// Package common provides shared utilities for folio
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	money "github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for folio
type Config struct {
	Environment  string            `toml:"environment"`
	BaseCurrency string            `toml:"base_currency"` // Currency all values are reported in (default "EUR")
	Input        InputConfig       `toml:"input"`
	Benchmark    BenchmarkConfig   `toml:"benchmark"`
	Analysis     AnalysisConfig    `toml:"analysis"`
	Instruments  map[string]string `toml:"instruments"` // ISIN -> EODHD ticker (e.g. "US0378331005" = "AAPL.US")
	Output       OutputConfig      `toml:"output"`
	Storage      StorageConfig     `toml:"storage"`
	Clients      ClientsConfig     `toml:"clients"`
	Logging      LoggingConfig     `toml:"logging"`
}

// InputConfig describes the broker export and how to clean it
type InputConfig struct {
	Transactions     string `toml:"transactions"`
	Valuations       string `toml:"valuations"`                                 // Optional date,value,cash_flow CSV; bypasses pricing
	MissingValues    string `toml:"missing_values" validate:"oneof=skip fill fail"` // skip, fill or fail
	DecimalSeparator string `toml:"decimal_separator"`                          // "," for European exports
}

// BenchmarkConfig selects the reference index
type BenchmarkConfig struct {
	Ticker string `toml:"ticker"`
	MaxAge string `toml:"max_age"` // How long cached bars stay fresh
}

// GetMaxAge parses and returns the cache max age
func (c *BenchmarkConfig) GetMaxAge() time.Duration {
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// AnalysisConfig holds the return and risk parameters
type AnalysisConfig struct {
	Frequency      string  `toml:"frequency" validate:"oneof=daily weekly monthly"`
	PeriodsPerYear float64 `toml:"periods_per_year" validate:"gte=0"`      // volatility scaling factor; 0 derives it from frequency
	RiskFreeRate   float64 `toml:"risk_free_rate" validate:"gte=-1,lte=1"` // annual, decimal
	From           string  `toml:"from" validate:"omitempty,datetime=2006-01-02"`
	To             string  `toml:"to" validate:"omitempty,datetime=2006-01-02"`
	MovingAverage  int     `toml:"moving_average" validate:"gte=0"`    // periods for the equity curve overlay, 0 disables
	VolWindow      int     `toml:"volatility_window" validate:"gte=0"` // periods per rolling volatility window, 0 disables
}

// ScalingFactor returns the configured periods per year, or the natural
// value for the reporting frequency.
func (c *AnalysisConfig) ScalingFactor() float64 {
	if c.PeriodsPerYear > 0 {
		return c.PeriodsPerYear
	}
	switch strings.ToLower(c.Frequency) {
	case "daily":
		return 252
	case "weekly":
		return 52
	default:
		return 12
	}
}

// OutputConfig controls report and chart output
type OutputConfig struct {
	Dir    string `toml:"dir" validate:"required"`
	Charts bool   `toml:"charts"`
	JSON   bool   `toml:"json"`
	HTML   bool   `toml:"html"` // report.html rendered from the markdown
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	Market AreaConfig `toml:"market"` // Cached EOD bars (file-based JSON)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path" validate:"required"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
	ECB   ECBConfig   `toml:"ecb"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit" validate:"gte=0"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ECBConfig holds the ECB exchange-rate API configuration
type ECBConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit" validate:"gte=0"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ECBConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format" validate:"omitempty,oneof=console json"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: "EUR",
		Input: InputConfig{
			Transactions:     "data/Transactions.csv",
			MissingValues:    "fill",
			DecimalSeparator: ",",
		},
		Benchmark: BenchmarkConfig{
			Ticker: "GSPC.INDX",
			MaxAge: "12h",
		},
		Analysis: AnalysisConfig{
			Frequency:     "monthly",
			MovingAverage: 6,
			VolWindow:     6,
		},
		Instruments: map[string]string{},
		Output: OutputConfig{
			Dir:    "reports",
			Charts: true,
			JSON:   true,
		},
		Storage: StorageConfig{
			Market: AreaConfig{Path: "data/market"},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			ECB: ECBConfig{
				BaseURL:   "https://data-api.ecb.europa.eu/service/data/EXR",
				RateLimit: 5,
				Timeout:   "15s",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FOLIO_DATA_PATH"); path != "" {
		config.Storage.Market.Path = filepath.Join(path, "market")
	}

	if bc := os.Getenv("FOLIO_BASE_CURRENCY"); bc != "" {
		config.BaseCurrency = strings.ToUpper(bc)
	}

	if ticker := os.Getenv("FOLIO_BENCHMARK"); ticker != "" {
		config.Benchmark.Ticker = ticker
	}

	if ppy := os.Getenv("FOLIO_PERIODS_PER_YEAR"); ppy != "" {
		if v, err := strconv.ParseFloat(ppy, 64); err == nil {
			config.Analysis.PeriodsPerYear = v
		}
	}

	for _, name := range []string{"EODHD_API_KEY", "FOLIO_EODHD_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			config.Clients.EODHD.APIKey = key
			break
		}
	}
}

// Validate normalises the enumerated settings and checks the values that the
// pipeline cannot recover from.
func (c *Config) Validate() error {
	c.BaseCurrency = strings.ToUpper(strings.TrimSpace(c.BaseCurrency))
	if money.GetCurrency(c.BaseCurrency) == nil {
		return fmt.Errorf("unknown base currency %q", c.BaseCurrency)
	}

	c.Input.MissingValues = strings.ToLower(strings.TrimSpace(c.Input.MissingValues))
	if c.Input.MissingValues == "" {
		c.Input.MissingValues = "fill"
	}
	c.Analysis.Frequency = strings.ToLower(strings.TrimSpace(c.Analysis.Frequency))
	if c.Analysis.Frequency == "" {
		c.Analysis.Frequency = "monthly"
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	// "," cannot appear in a validator tag
	switch c.Input.DecimalSeparator {
	case ",", ".":
	case "":
		c.Input.DecimalSeparator = ","
	default:
		return fmt.Errorf("invalid decimal_separator %q", c.Input.DecimalSeparator)
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AnalysisRange parses the optional from/to bounds. Zero times mean unbounded.
func (c *Config) AnalysisRange() (from, to time.Time, err error) {
	if c.Analysis.From != "" {
		if from, err = time.Parse("2006-01-02", c.Analysis.From); err != nil {
			return from, to, fmt.Errorf("invalid analysis.from: %w", err)
		}
	}
	if c.Analysis.To != "" {
		if to, err = time.Parse("2006-01-02", c.Analysis.To); err != nil {
			return from, to, fmt.Errorf("invalid analysis.to: %w", err)
		}
	}
	return from, to, nil
}

// TickerFor returns the market-data ticker for an instrument, falling back to
// the instrument id itself.
func (c *Config) TickerFor(instrumentID string) string {
	if t, ok := c.Instruments[instrumentID]; ok && t != "" {
		return t
	}
	return instrumentID
}
