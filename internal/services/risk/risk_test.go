package risk

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
)

func month(m int) time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, m, 0)
}

func alignedFrom(portfolio, benchmark []float64) []models.AlignedReturn {
	out := make([]models.AlignedReturn, len(portfolio))
	for i := range portfolio {
		out[i] = models.AlignedReturn{Start: month(i), Date: month(i + 1), Portfolio: portfolio[i], Benchmark: benchmark[i]}
	}
	return out
}

func seriesFrom(returns []float64) models.ReturnSeries {
	out := make(models.ReturnSeries, len(returns))
	for i, r := range returns {
		out[i] = models.ReturnPoint{Start: month(i), Date: month(i + 1), Return: r}
	}
	return out
}

func TestCompute_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		_, err := Compute(seriesFrom(make([]float64, n)), Options{PeriodsPerYear: 12})
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("n=%d: err = %v, want ErrInsufficientData", n, err)
		}
	}
}

func TestRelative_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		aligned := alignedFrom(make([]float64, n), make([]float64, n))
		_, err := Relative(aligned, Options{PeriodsPerYear: 12})
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("n=%d: err = %v, want ErrInsufficientData", n, err)
		}
	}
}

func TestCompute_PortfolioMetrics(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, 0.00}
	m, err := Compute(seriesFrom(returns), Options{PeriodsPerYear: 12, RiskFreeRate: 0.01})
	require.NoError(t, err)

	assert.Equal(t, 4, m.Observations)
	assert.Equal(t, 12.0, m.PeriodsPerYear)
	assert.InDelta(t, Volatility(returns, 12), m.Volatility, 1e-12)
	assert.InDelta(t, Sharpe(returns, 12, 0.01), m.SharpeRatio, 1e-12)
	assert.InDelta(t, 0.01, m.MaxDrawdown.Depth, 1e-12)
	assert.Nil(t, m.Relative)
}

func TestCompute_DrawdownIncludesUnalignedPeriods(t *testing.T) {
	// The benchmark history starts at month 2, after the -50% period
	series := seriesFrom([]float64{0.10, -0.50, 0.05, 0.02})
	bench := models.BenchmarkSeries{
		Ticker: "IDX.INDX",
		Points: []models.PricePoint{
			{Date: month(2), Price: 100},
			{Date: month(3), Price: 101},
			{Date: month(4), Price: 99},
		},
	}

	aligned := Align(series, bench)
	require.Len(t, aligned, 2)

	m, err := Compute(series, Options{PeriodsPerYear: 12})
	require.NoError(t, err)
	assert.InDelta(t, 0.50, m.MaxDrawdown.Depth, 1e-12)
	assert.Equal(t, month(1), m.MaxDrawdown.Peak)
	assert.Equal(t, month(2), m.MaxDrawdown.Trough)
	assert.Equal(t, 4, m.Observations)

	rel, err := Relative(aligned, Options{PeriodsPerYear: 12})
	require.NoError(t, err)
	assert.Equal(t, 2, rel.Observations)
}

func TestRelative_BetaOfLeveragedBenchmark(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, 0.005, -0.01}
	port := make([]float64, len(bench))
	for i, b := range bench {
		port[i] = 2 * b
	}

	m, err := Relative(alignedFrom(port, bench), Options{PeriodsPerYear: 12})
	require.NoError(t, err)
	require.NotNil(t, m.Beta)
	require.NotNil(t, m.Correlation)
	assert.InDelta(t, 2.0, *m.Beta, 1e-12)
	assert.InDelta(t, 1.0, *m.Correlation, 1e-12)
	assert.InDelta(t, Volatility(port, 12), 2*m.BenchmarkVolatility, 1e-12)
	assert.Equal(t, 5, m.Observations)
}

func TestRelative_ZeroBenchmarkVariance(t *testing.T) {
	port := []float64{0.10, -0.20, 0.05}
	m, err := Relative(alignedFrom(port, []float64{0, 0, 0}), Options{PeriodsPerYear: 12})
	require.NoError(t, err)
	assert.Nil(t, m.Beta)
	assert.Nil(t, m.Correlation)
	assert.Equal(t, 0.0, m.BenchmarkVolatility)
	assert.Equal(t, 0.0, m.BenchmarkMaxDrawdown.Depth)
	assert.InDelta(t, Volatility(port, 12), m.TrackingError, 1e-12)

	// Portfolio figures do not depend on the benchmark moving
	pm, err := Compute(seriesFrom(port), Options{PeriodsPerYear: 12})
	require.NoError(t, err)
	assert.Greater(t, pm.Volatility, 0.0)
	assert.InDelta(t, 0.20, pm.MaxDrawdown.Depth, 1e-12)
}

func TestCompute_RejectsBadScaling(t *testing.T) {
	_, err := Compute(seriesFrom([]float64{0.01, 0.02}), Options{})
	assert.Error(t, err)
	_, err = Relative(alignedFrom([]float64{0.01, 0.02}, []float64{0.02, 0.01}), Options{})
	assert.Error(t, err)
}

func TestVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, 0.00}
	// sample variance = 5e-4 / 3
	want := math.Sqrt(5e-4/3) * math.Sqrt(12)
	assert.InDelta(t, want, Volatility(returns, 12), 1e-12)

	// Scaling factor is configurable
	assert.InDelta(t, math.Sqrt(5e-4/3)*math.Sqrt(252), Volatility(returns, 252), 1e-12)

	assert.Equal(t, 0.0, Volatility([]float64{0.05}, 12))
}

func TestBeta_LengthMismatch(t *testing.T) {
	_, err := Beta([]float64{0.1, 0.2}, []float64{0.1})
	assert.Error(t, err)
}

func TestBeta_Uncorrelated(t *testing.T) {
	port := []float64{0.01, -0.01, 0.01, -0.01}
	bench := []float64{0.01, 0.01, -0.01, -0.01}
	beta, err := Beta(port, bench)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, beta, 1e-12)
}

func TestSharpe(t *testing.T) {
	returns := []float64{0.02, 0.00, 0.02, 0.00}
	vol := Volatility(returns, 12)
	want := (0.01*12 - 0.02) / vol
	assert.InDelta(t, want, Sharpe(returns, 12, 0.02), 1e-12)
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01}, 12, 0))
}

func TestTrackingError_IdenticalSeries(t *testing.T) {
	r := []float64{0.01, -0.03, 0.02}
	assert.Equal(t, 0.0, TrackingError(r, r, 12))
}

func TestAlign(t *testing.T) {
	bench := models.BenchmarkSeries{
		Ticker: "GSPC.INDX",
		Points: []models.PricePoint{
			{Date: month(1), Price: 100},
			{Date: month(2), Price: 110},
			{Date: month(3).AddDate(0, 0, -2), Price: 99}, // last bar before month(3)
		},
	}
	series := models.ReturnSeries{
		{Start: month(0), Date: month(1), Return: 0.05},  // no benchmark price at start: dropped
		{Start: month(1), Date: month(2), Return: 0.08},  // 100 -> 110
		{Start: month(2), Date: month(3), Return: -0.02}, // 110 -> 99 (as-of)
	}

	aligned := Align(series, bench)
	require.Len(t, aligned, 2)
	assert.InDelta(t, 0.10, aligned[0].Benchmark, 1e-12)
	assert.Equal(t, 0.08, aligned[0].Portfolio)
	assert.InDelta(t, -0.10, aligned[1].Benchmark, 1e-12)
	assert.Equal(t, month(3), aligned[1].Date)
}

func TestAlign_TooShortFailsRelative(t *testing.T) {
	bench := models.BenchmarkSeries{Points: []models.PricePoint{{Date: month(0), Price: 100}, {Date: month(1), Price: 101}}}
	series := models.ReturnSeries{{Start: month(0), Date: month(1), Return: 0.01}}

	_, err := Relative(Align(series, bench), Options{PeriodsPerYear: 12})
	assert.ErrorIs(t, err, ErrInsufficientData)
}
