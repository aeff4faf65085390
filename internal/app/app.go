// Package app wires configuration, clients, storage and services into the
// analysis pipeline used by cmd/folio.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/ecb"
	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/ingest"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/benchmark"
	"github.com/bobmcallan/folio/internal/services/report"
	"github.com/bobmcallan/folio/internal/services/valuation"
	"github.com/bobmcallan/folio/internal/storage/marketfs"
)

// App holds all initialized services, clients, and storage.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       *marketfs.Store
	EODHDClient interfaces.EODHDClient // nil without an API key
	FXClient    *ecb.Client
	Benchmark   *benchmark.Service
	Normalizer  *ingest.Normalizer
	Valuation   *valuation.Builder
	Reports     *report.Service
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, then FOLIO_CONFIG,
// then folio.toml next to the binary, then config/folio.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes all services from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	store, err := marketfs.NewMarketStore(logger, config.Storage.Market.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	checkSchemaVersion(store, logger)

	// Without a key the benchmark service serves the cache only
	var eodhdClient interfaces.EODHDClient
	if config.Clients.EODHD.APIKey != "" {
		eodhdClient = eodhd.NewClient(config.Clients.EODHD.APIKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("EODHD API key not configured - only cached prices are available")
	}

	fxClient := ecb.NewClient(
		ecb.WithBaseURL(config.Clients.ECB.BaseURL),
		ecb.WithLogger(logger),
		ecb.WithRateLimit(config.Clients.ECB.RateLimit),
		ecb.WithTimeout(config.Clients.ECB.GetTimeout()),
	)

	benchmarkService := benchmark.NewService(store, eodhdClient, config.Benchmark.GetMaxAge(), logger)

	normalizer := ingest.NewNormalizer(ingest.Options{
		BaseCurrency:     config.BaseCurrency,
		Policy:           ingest.Policy(config.Input.MissingValues),
		DecimalSeparator: config.Input.DecimalSeparator,
	}, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		EODHDClient: eodhdClient,
		FXClient:    fxClient,
		Benchmark:   benchmarkService,
		Normalizer:  normalizer,
		Valuation:   valuation.NewBuilder(benchmarkService, fxClient, config.TickerFor, logger),
		Reports:     report.NewService(config.Output, config.Analysis.MovingAverage, logger),
		StartupTime: startupStart,
	}

	logger.Debug().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
