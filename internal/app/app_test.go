package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/services/returns"
	"github.com/bobmcallan/folio/internal/services/risk"
)

const testTransactions = `Date,Time,Product,ISIN,Quantity,Price,,Value,,Transaction and/or third party fees,,Order ID
15-02-2024,10:00,VANGUARD FTSE AW,IE00BK5BQT80,5,"110,00",EUR,"-550,00",EUR,"-2,00",EUR,o2
10-01-2024,10:00,VANGUARD FTSE AW,IE00BK5BQT80,10,"100,00",EUR,"-1000,00",EUR,,,o1
`

var testBars = map[string]string{
	"VWRL.AS": `[
		{"date":"2024-04-30","close":115,"adjusted_close":115},
		{"date":"2024-03-29","close":120,"adjusted_close":120},
		{"date":"2024-02-29","close":110,"adjusted_close":110},
		{"date":"2024-01-31","close":105,"adjusted_close":105},
		{"date":"2024-01-10","close":100,"adjusted_close":100}
	]`,
	"IDX.INDX": `[
		{"date":"2024-04-30","close":4400,"adjusted_close":4400},
		{"date":"2024-03-28","close":4250,"adjusted_close":4250},
		{"date":"2024-02-29","close":4300,"adjusted_close":4300},
		{"date":"2024-01-31","close":4100,"adjusted_close":4100},
		{"date":"2024-01-10","close":4000,"adjusted_close":4000},
		{"date":"2024-01-03","close":3950,"adjusted_close":3950}
	]`,
}

// newTestApp builds an App against a fake EODHD server and temp storage.
func newTestApp(t *testing.T) (*App, *atomic.Int64) {
	t.Helper()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, ok := testBars[strings.TrimPrefix(r.URL.Path, "/eod/")]
		if !ok {
			http.Error(w, "ticker not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	txPath := filepath.Join(dir, "Transactions.csv")
	require.NoError(t, os.WriteFile(txPath, []byte(testTransactions), 0o644))

	cfg := common.NewDefaultConfig()
	cfg.Input.Transactions = txPath
	cfg.Benchmark.Ticker = "IDX.INDX"
	cfg.Analysis.To = "2024-04-30"
	cfg.Analysis.VolWindow = 3
	cfg.Instruments = map[string]string{"IE00BK5BQT80": "VWRL.AS"}
	cfg.Storage.Market.Path = filepath.Join(dir, "market")
	cfg.Output.Dir = filepath.Join(dir, "reports")
	cfg.Clients.EODHD.APIKey = "test-key"
	cfg.Clients.EODHD.BaseURL = srv.URL
	require.NoError(t, cfg.Validate())

	a, err := NewAppWithConfig(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, &requests
}

func TestNewAppWithConfig_InitializesServices(t *testing.T) {
	a, _ := newTestApp(t)

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.EODHDClient)
	assert.NotNil(t, a.FXClient)
	assert.NotNil(t, a.Benchmark)
	assert.NotNil(t, a.Normalizer)
	assert.NotNil(t, a.Valuation)
	assert.NotNil(t, a.Reports)

	assert.FileExists(t, filepath.Join(a.Store.DataPath(), schemaVersionFile))
}

func TestNewAppWithConfig_NoAPIKey(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Market.Path = t.TempDir()

	a, err := NewAppWithConfig(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.EODHDClient, "no key leaves a nil interface, not a typed nil")
}

func TestAnalyze_Transactions(t *testing.T) {
	a, requests := newTestApp(t)

	r, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, r.RunID, 36)
	assert.Equal(t, "EUR", r.BaseCurrency)
	assert.Equal(t, 2, r.Transactions)
	assert.Empty(t, r.Issues)
	require.Len(t, r.Holdings, 1)
	assert.Equal(t, "15", r.Holdings[0].Quantity.String())

	require.Len(t, r.Valuations, 5)
	assert.InDelta(t, 1000, r.StartValue, 1e-9)
	assert.InDelta(t, 1725, r.EndValue, 1e-9)
	assert.InDelta(t, 552, r.NetCashFlow, 1e-9)

	require.Len(t, r.Returns, 4)
	assert.InDelta(t, 0.05, r.Returns[0].Return, 1e-12)
	assert.InDelta(t, 1098.0/1050-1, r.Returns[1].Return, 1e-12)
	assert.InDelta(t, returns.Compound(r.Returns), r.TWR, 1e-12)
	assert.Nil(t, r.AnnualTWR, "under a year")
	assert.NotNil(t, r.XIRR)

	require.NotNil(t, r.BenchmarkTWR)
	assert.InDelta(t, 4400.0/4000-1, *r.BenchmarkTWR, 1e-12)
	require.NotNil(t, r.Risk, r.RiskError)
	assert.Equal(t, 4, r.Risk.Observations)
	require.NotNil(t, r.Risk.Relative, r.RiskError)
	assert.Equal(t, 4, r.Risk.Relative.Observations)
	assert.NotNil(t, r.Risk.Relative.Beta)
	assert.Empty(t, r.RiskError)
	assert.Len(t, r.Aligned, 4)
	assert.Len(t, r.RollingVol, 2)

	// instrument and benchmark, one request each
	assert.Equal(t, int64(2), requests.Load())

	// a second run is served from the cache
	_, err = a.Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), requests.Load())
}

func TestAnalyze_BenchmarkUnavailable(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.Benchmark.Ticker = "MISSING.INDX"

	r, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, r.BenchmarkTWR)
	assert.Contains(t, r.RiskError, "benchmark unavailable")
	assert.Len(t, r.Returns, 4, "returns do not depend on the benchmark")

	// portfolio risk needs no benchmark
	require.NotNil(t, r.Risk)
	assert.Nil(t, r.Risk.Relative)
	assert.Equal(t, 4, r.Risk.Observations)
	assert.InDelta(t, risk.Volatility(r.Returns.Values(), a.Config.Analysis.ScalingFactor()), r.Risk.Volatility, 1e-12)
	assert.Greater(t, r.Risk.Volatility, 0.0)
	assert.Equal(t, risk.MaxDrawdown(r.Returns[0].Start, r.Returns), r.Risk.MaxDrawdown)
}

func TestAnalyze_ValuationsFile(t *testing.T) {
	a, _ := newTestApp(t)

	path := filepath.Join(t.TempDir(), "valuations.csv")
	csv := "date,value,cash_flow\n2024-01-31,1000,\n2024-02-29,1100,\n2024-03-28,1050,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	a.Config.Input.Valuations = path
	a.Config.Benchmark.Ticker = ""

	r, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, r.TWR, 1e-12)
	require.Len(t, r.Returns, 2)
	assert.InDelta(t, -0.0454545, r.Returns[1].Return, 1e-6)
	assert.Equal(t, 0, r.Transactions)
	assert.Equal(t, "no benchmark configured", r.RiskError)
	require.NotNil(t, r.Risk)
	assert.Nil(t, r.Risk.Relative)
	assert.InDelta(t, 1-1050.0/1100, r.Risk.MaxDrawdown.Depth, 1e-12)
}

func TestAnalyze_ZeroStartValueFails(t *testing.T) {
	a, _ := newTestApp(t)

	path := filepath.Join(t.TempDir(), "valuations.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,value\n2024-01-31,1000\n2024-02-29,0\n2024-03-31,500\n"), 0o644))
	a.Config.Input.Valuations = path

	_, err := a.Analyze(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, returns.ErrInvalidStartValue)
}

func TestCheckSchemaVersion(t *testing.T) {
	a, _ := newTestApp(t)
	logger := common.NewSilentLogger()

	_, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)
	tickers, err := a.Store.Tickers(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tickers)

	assert.False(t, checkSchemaVersion(a.Store, logger), "version already stored")

	versionPath := filepath.Join(a.Store.DataPath(), schemaVersionFile)
	require.NoError(t, os.WriteFile(versionPath, []byte("0\n"), 0o644))
	assert.True(t, checkSchemaVersion(a.Store, logger))

	tickers, err = a.Store.Tickers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tickers)

	data, err := os.ReadFile(versionPath)
	require.NoError(t, err)
	assert.Equal(t, common.SchemaVersion+"\n", string(data))
}

func TestClip(t *testing.T) {
	a, _ := newTestApp(t)
	from, to, err := a.Config.AnalysisRange()
	require.NoError(t, err)
	assert.True(t, from.IsZero())

	path := filepath.Join(t.TempDir(), "valuations.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,value,cash_flow\n2024-03-31,1000,10\n2024-04-30,1100,0\n2024-05-31,1200,0\n"), 0o644))

	a.Config.Input.Valuations = path
	a.Config.Benchmark.Ticker = ""
	r, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, to, r.To, "points after analysis.to are dropped")
	assert.Equal(t, 0.0, r.Valuations[0].NetCashFlow)
}
