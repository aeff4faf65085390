// Package risk computes volatility and drawdown of a portfolio return series
// and its beta against a benchmark.
package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/folio/internal/models"
)

var (
	// ErrInsufficientData is returned when fewer than two aligned
	// observations are available.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrZeroBenchmarkVariance is returned by Beta when the benchmark did
	// not move.
	ErrZeroBenchmarkVariance = errors.New("benchmark variance is zero")
)

// MinObservations is the smallest aligned sample the engine accepts.
const MinObservations = 2

// varianceFloor treats rounding noise on a flat series as zero variance.
const varianceFloor = 1e-18

// Options configures Compute
type Options struct {
	PeriodsPerYear float64 // annualisation scaling factor, e.g. 12 for monthly
	RiskFreeRate   float64 // annual, decimal
}

// Align pairs every portfolio sub-period with the benchmark return over the
// same start and end dates. The benchmark price on each date is the last
// price on or before it; periods the benchmark cannot price are dropped.
func Align(series models.ReturnSeries, benchmark models.BenchmarkSeries) []models.AlignedReturn {
	aligned := make([]models.AlignedReturn, 0, len(series))
	for _, p := range series {
		startPrice, ok := benchmark.PriceAsOf(p.Start)
		if !ok || startPrice <= 0 {
			continue
		}
		endPrice, ok := benchmark.PriceAsOf(p.Date)
		if !ok {
			continue
		}
		aligned = append(aligned, models.AlignedReturn{
			Start:     p.Start,
			Date:      p.Date,
			Portfolio: p.Return,
			Benchmark: endPrice/startPrice - 1,
		})
	}
	return aligned
}

// Compute derives the portfolio-only metrics from the full return series.
// Drawdown compounds every period, including those the benchmark cannot
// price.
func Compute(series models.ReturnSeries, opts Options) (*models.RiskMetrics, error) {
	if len(series) < MinObservations {
		return nil, fmt.Errorf("%w: %d return periods, need %d", ErrInsufficientData, len(series), MinObservations)
	}
	if opts.PeriodsPerYear <= 0 {
		return nil, fmt.Errorf("periods per year must be positive, got %v", opts.PeriodsPerYear)
	}

	returns := series.Values()
	return &models.RiskMetrics{
		Observations:   len(series),
		PeriodsPerYear: opts.PeriodsPerYear,
		Volatility:     Volatility(returns, opts.PeriodsPerYear),
		SharpeRatio:    Sharpe(returns, opts.PeriodsPerYear, opts.RiskFreeRate),
		MaxDrawdown:    MaxDrawdown(series[0].Start, series),
		ComputedAt:     time.Now(),
	}, nil
}

// Relative derives the benchmark comparison for an aligned sample. A flat
// benchmark leaves Beta nil instead of failing.
func Relative(aligned []models.AlignedReturn, opts Options) (*models.RelativeMetrics, error) {
	if len(aligned) < MinObservations {
		return nil, fmt.Errorf("%w: %d aligned observations, need %d", ErrInsufficientData, len(aligned), MinObservations)
	}
	if opts.PeriodsPerYear <= 0 {
		return nil, fmt.Errorf("periods per year must be positive, got %v", opts.PeriodsPerYear)
	}

	portfolio := make([]float64, len(aligned))
	bench := make([]float64, len(aligned))
	for i, a := range aligned {
		portfolio[i] = a.Portfolio
		bench[i] = a.Benchmark
	}

	benchSeries := seriesOf(aligned, func(a models.AlignedReturn) float64 { return a.Benchmark })
	m := &models.RelativeMetrics{
		Observations:         len(aligned),
		BenchmarkVolatility:  Volatility(bench, opts.PeriodsPerYear),
		BenchmarkMaxDrawdown: MaxDrawdown(aligned[0].Start, benchSeries),
		TrackingError:        TrackingError(portfolio, bench, opts.PeriodsPerYear),
	}

	beta, err := Beta(portfolio, bench)
	switch {
	case err == nil:
		m.Beta = &beta
	case !errors.Is(err, ErrZeroBenchmarkVariance):
		return nil, err
	}
	if stat.Variance(portfolio, nil) >= varianceFloor && stat.Variance(bench, nil) >= varianceFloor {
		corr := stat.Correlation(portfolio, bench, nil)
		m.Correlation = &corr
	}
	return m, nil
}

// Volatility is the sample standard deviation of periodic returns scaled by
// √periodsPerYear.
func Volatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < MinObservations {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear)
}

// Beta is cov(portfolio, benchmark) / var(benchmark).
func Beta(portfolio, benchmark []float64) (float64, error) {
	if len(portfolio) != len(benchmark) {
		return 0, fmt.Errorf("series length mismatch: %d vs %d", len(portfolio), len(benchmark))
	}
	if len(portfolio) < MinObservations {
		return 0, fmt.Errorf("%w: %d observations", ErrInsufficientData, len(portfolio))
	}
	variance := stat.Variance(benchmark, nil)
	if variance < varianceFloor {
		return 0, ErrZeroBenchmarkVariance
	}
	return stat.Covariance(portfolio, benchmark, nil) / variance, nil
}

// TrackingError is the annualised standard deviation of active returns.
func TrackingError(portfolio, benchmark []float64, periodsPerYear float64) float64 {
	active := make([]float64, len(portfolio))
	for i := range portfolio {
		active[i] = portfolio[i] - benchmark[i]
	}
	return Volatility(active, periodsPerYear)
}

// Sharpe is the annualised excess mean return over annualised volatility.
// Zero volatility yields zero.
func Sharpe(returns []float64, periodsPerYear, riskFreeRate float64) float64 {
	vol := Volatility(returns, periodsPerYear)
	if vol < varianceFloor {
		return 0
	}
	return (stat.Mean(returns, nil)*periodsPerYear - riskFreeRate) / vol
}
