package models

import "time"

// ValuationPoint is the portfolio value on a reporting date together with
// the net external cash flow since the previous point. Positive flows are
// money added to the portfolio.
type ValuationPoint struct {
	Date        time.Time          `json:"date"`
	Value       float64            `json:"value"`
	NetCashFlow float64            `json:"net_cash_flow"`
	Exposure    map[string]float64 `json:"exposure,omitempty"` // instrument -> value in base currency
}

// ReturnPoint is the return of one sub-period ending on Date
type ReturnPoint struct {
	Start  time.Time `json:"start"`
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is an ordered sequence of sub-period returns
type ReturnSeries []ReturnPoint

// Values returns the bare returns in order
func (s ReturnSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Return
	}
	return out
}

// GrowthOfOne compounds the series from 1.0, returning one more point than
// the series (the base on the first start date).
func (s ReturnSeries) GrowthOfOne() []PricePoint {
	if len(s) == 0 {
		return nil
	}
	out := make([]PricePoint, 0, len(s)+1)
	out = append(out, PricePoint{Date: s[0].Start, Price: 1})
	level := 1.0
	for _, p := range s {
		level *= 1 + p.Return
		out = append(out, PricePoint{Date: p.Date, Price: level})
	}
	return out
}

// AlignedReturn pairs a portfolio sub-period return with the benchmark
// return over the same dates
type AlignedReturn struct {
	Start     time.Time `json:"start"`
	Date      time.Time `json:"date"`
	Portfolio float64   `json:"portfolio"`
	Benchmark float64   `json:"benchmark"`
}
