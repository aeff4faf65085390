package models

import "time"

// RiskMetrics holds the output of the risk engine. The portfolio figures
// use every return period; Relative is filled only when the benchmark
// aligns with at least two of them.
type RiskMetrics struct {
	Observations   int              `json:"observations"`
	PeriodsPerYear float64          `json:"periods_per_year"`
	Volatility     float64          `json:"volatility"` // annualised
	SharpeRatio    float64          `json:"sharpe_ratio"`
	MaxDrawdown    Drawdown         `json:"max_drawdown"`
	Relative       *RelativeMetrics `json:"relative,omitempty"`
	ComputedAt     time.Time        `json:"computed_at"`
}

// RelativeMetrics compares the portfolio with the benchmark over the
// aligned periods. Beta and Correlation are nil when a side did not move.
type RelativeMetrics struct {
	Observations         int      `json:"observations"`
	BenchmarkVolatility  float64  `json:"benchmark_volatility"`
	BenchmarkMaxDrawdown Drawdown `json:"benchmark_max_drawdown"`
	Beta                 *float64 `json:"beta,omitempty"`
	Correlation          *float64 `json:"correlation,omitempty"`
	TrackingError        float64  `json:"tracking_error"`
}

// Drawdown describes the largest peak-to-trough decline. Depth is a
// positive fraction (0.25 = 25% below the peak).
type Drawdown struct {
	Depth    float64   `json:"depth"`
	Peak     time.Time `json:"peak"`
	Trough   time.Time `json:"trough"`
	Recovery time.Time `json:"recovery,omitempty"` // zero while still under water
}

// Report is the result of one analysis run
type Report struct {
	RunID        string           `json:"run_id"`
	GeneratedAt  time.Time        `json:"generated_at"`
	BaseCurrency string           `json:"base_currency"`
	Benchmark    string           `json:"benchmark"`
	From         time.Time        `json:"from"`
	To           time.Time        `json:"to"`
	StartValue   float64          `json:"start_value"`
	EndValue     float64          `json:"end_value"`
	NetCashFlow  float64          `json:"net_cash_flow"`
	TWR          float64          `json:"twr"`
	AnnualTWR    *float64         `json:"annualised_twr,omitempty"` // only for periods of a year or more
	BenchmarkTWR *float64         `json:"benchmark_return,omitempty"`
	XIRR         *float64         `json:"xirr,omitempty"`
	Returns      ReturnSeries     `json:"returns"`
	Aligned      []AlignedReturn  `json:"aligned,omitempty"`
	Valuations   []ValuationPoint `json:"valuations"`
	Risk         *RiskMetrics     `json:"risk,omitempty"`
	RiskError    string           `json:"risk_error,omitempty"` // why Risk or Risk.Relative is missing
	Holdings     []Holding        `json:"holdings"`
	Transactions int              `json:"transactions"`
	Issues       []Issue          `json:"issues,omitempty"`
	RollingVol   []PricePoint     `json:"rolling_volatility,omitempty"` // annualised, trailing window
	Charts       []string         `json:"charts,omitempty"`
}
