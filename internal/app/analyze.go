package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/ingest"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/returns"
	"github.com/bobmcallan/folio/internal/services/risk"
	"github.com/bobmcallan/folio/internal/services/valuation"
	"github.com/bobmcallan/folio/internal/signals"
)

// benchmarkLookback widens the benchmark request so the first reporting
// date, often a weekend or holiday, has an as-of close.
const benchmarkLookback = 7

// Analyze runs the pipeline: load and normalise transactions (or read
// valuation points directly), value the portfolio, compute returns, fetch
// the benchmark and compute risk. Portfolio risk needs only the return
// series; an unavailable benchmark or too short an aligned sample leaves
// Risk.Relative empty with the reason in RiskError. Every other failure
// aborts the run. An empty runID gets a fresh one.
func (a *App) Analyze(ctx context.Context, runID string) (*models.Report, error) {
	if runID == "" {
		runID = NewRunID()
	}
	cfg := a.Config
	report := &models.Report{
		RunID:        runID,
		GeneratedAt:  time.Now(),
		BaseCurrency: cfg.BaseCurrency,
		Benchmark:    cfg.Benchmark.Ticker,
	}

	from, to, err := cfg.AnalysisRange()
	if err != nil {
		return nil, err
	}

	points, err := a.valuations(ctx, report, from, to)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no valuation points in range")
	}

	twr, err := returns.CalculateTWR(points)
	if err != nil {
		return nil, fmt.Errorf("time-weighted return: %w", err)
	}

	first, last := points[0], points[len(points)-1]
	report.From, report.To = first.Date, last.Date
	report.StartValue, report.EndValue = first.Value, last.Value
	for _, p := range points[1:] {
		report.NetCashFlow += p.NetCashFlow
	}
	report.TWR = twr.TWR
	report.Returns = twr.Series
	report.Valuations = points

	if days := returns.Days(twr.Series); days >= 365 {
		annual := returns.Annualise(twr.TWR, days)
		report.AnnualTWR = &annual
	}
	if xirr, ok := returns.CalculateXIRR(returns.FlowsFromValuations(points)); ok {
		report.XIRR = &xirr
	}

	opts := risk.Options{
		PeriodsPerYear: cfg.Analysis.ScalingFactor(),
		RiskFreeRate:   cfg.Analysis.RiskFreeRate,
	}
	report.RollingVol = signals.RollingVolatility(twr.Series, cfg.Analysis.VolWindow, opts.PeriodsPerYear)

	metrics, err := risk.Compute(twr.Series, opts)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Risk metrics unavailable")
		report.RiskError = err.Error()
	}
	report.Risk = metrics

	a.benchmarkRisk(ctx, report, opts)

	a.Logger.Info().
		Str("run_id", report.RunID).
		Int("points", len(points)).
		Float64("twr", report.TWR).
		Bool("risk", report.Risk != nil).
		Msg("Analysis complete")
	return report, nil
}

// NewRunID returns a random identifier for one analysis run.
func NewRunID() string {
	return uuid.New().String()
}

// valuations produces the valuation points, from a valuation CSV when one
// is configured and from the transaction log otherwise.
func (a *App) valuations(ctx context.Context, report *models.Report, from, to time.Time) ([]models.ValuationPoint, error) {
	cfg := a.Config

	if cfg.Input.Valuations != "" {
		points, err := ingest.ReadValuationsFile(cfg.Input.Valuations, cfg.Input.DecimalSeparator)
		if err != nil {
			return nil, err
		}
		return clip(points, from, to), nil
	}

	res, err := a.Normalizer.NormalizeFile(cfg.Input.Transactions)
	if err != nil {
		return nil, err
	}
	report.Transactions = len(res.Transactions)
	report.Issues = res.Issues
	report.Holdings = ingest.Snapshot(res.Transactions)

	freq, err := valuation.ParseFrequency(cfg.Analysis.Frequency)
	if err != nil {
		return nil, err
	}
	return a.Valuation.Build(ctx, res.Transactions, valuation.Options{
		BaseCurrency: cfg.BaseCurrency,
		Frequency:    freq,
		From:         from,
		To:           to,
	})
}

// benchmarkRisk fetches the benchmark over the report period and fills the
// benchmark return and the relative risk metrics.
func (a *App) benchmarkRisk(ctx context.Context, report *models.Report, opts risk.Options) {
	if report.Benchmark == "" {
		setRiskError(report, "no benchmark configured")
		return
	}

	series, err := a.Benchmark.Fetch(ctx, report.Benchmark, report.From.AddDate(0, 0, -benchmarkLookback), report.To)
	if err != nil {
		a.Logger.Warn().Str("ticker", report.Benchmark).Err(err).Msg("Benchmark unavailable, relative metrics skipped")
		setRiskError(report, err.Error())
		return
	}

	if start, ok := series.PriceAsOf(report.From); ok {
		if end, ok := series.PriceAsOf(report.To); ok {
			if r, err := returns.SimpleReturn(start, end); err == nil {
				report.BenchmarkTWR = &r
			}
		}
	}

	report.Aligned = risk.Align(report.Returns, *series)
	if report.Risk == nil {
		return
	}
	rel, err := risk.Relative(report.Aligned, opts)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Relative risk metrics unavailable")
		setRiskError(report, err.Error())
		return
	}
	report.Risk.Relative = rel
}

// setRiskError keeps the first reason; a portfolio-level failure explains
// the missing benchmark metrics too.
func setRiskError(report *models.Report, reason string) {
	if report.RiskError == "" {
		report.RiskError = reason
	}
}

// clip keeps the points within [from, to]; zero bounds are open. The first
// kept point's flow belongs to the starting value.
func clip(points []models.ValuationPoint, from, to time.Time) []models.ValuationPoint {
	out := make([]models.ValuationPoint, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 0 {
		out[0].NetCashFlow = 0
	}
	return out
}
