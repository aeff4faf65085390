// Package returns computes time-weighted and money-weighted portfolio returns.
package returns

import (
	"errors"
	"fmt"
	"math"

	"github.com/bobmcallan/folio/internal/models"
)

var (
	// ErrInvalidStartValue is returned when a sub-period starts at a zero or
	// negative portfolio value.
	ErrInvalidStartValue = errors.New("invalid start value")

	// ErrUnorderedPoints is returned when valuation dates go backwards.
	ErrUnorderedPoints = errors.New("valuation points out of order")
)

// Result is the output of CalculateTWR
type Result struct {
	TWR    float64             // cumulative, decimal
	Series models.ReturnSeries // one entry per sub-period
}

// CalculateTWR computes the time-weighted return of a sequence of valuation
// points. Each point carries the external cash flow since the previous
// point; the flow is treated as arriving at the end of the sub-period:
//
//	r_i = (V_i - CF_i) / V_{i-1} - 1
//	TWR = Π(1 + r_i) - 1
//
// Empty or single-point input yields a zero return and no error.
func CalculateTWR(points []models.ValuationPoint) (*Result, error) {
	res := &Result{Series: models.ReturnSeries{}}
	if len(points) < 2 {
		return res, nil
	}

	chained := 1.0
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]

		if cur.Date.Before(prev.Date) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnorderedPoints,
				prev.Date.Format("2006-01-02"), cur.Date.Format("2006-01-02"))
		}
		if prev.Value <= 0 || math.IsNaN(prev.Value) {
			return nil, fmt.Errorf("%w: sub-period starting %s has value %.2f",
				ErrInvalidStartValue, prev.Date.Format("2006-01-02"), prev.Value)
		}

		r := (cur.Value-cur.NetCashFlow)/prev.Value - 1
		chained *= 1 + r
		res.Series = append(res.Series, models.ReturnPoint{
			Start:  prev.Date,
			Date:   cur.Date,
			Return: r,
		})
	}

	res.TWR = chained - 1
	return res, nil
}

// Compound geometrically links a return series.
func Compound(series models.ReturnSeries) float64 {
	chained := 1.0
	for _, p := range series {
		chained *= 1 + p.Return
	}
	return chained - 1
}

// SimpleReturn is end/start - 1, the TWR of a period without cash flows.
func SimpleReturn(start, end float64) (float64, error) {
	if start <= 0 {
		return 0, fmt.Errorf("%w: %.2f", ErrInvalidStartValue, start)
	}
	return end/start - 1, nil
}

// Annualise converts a cumulative return to an annual rate when the period
// is at least a year long; shorter periods are returned unchanged.
// Input and output are decimal.
func Annualise(cumulative float64, days float64) float64 {
	if days < 365 {
		return cumulative
	}
	base := 1 + cumulative
	if base <= 0 {
		// total loss: a fractional power of a non-positive base is undefined
		return cumulative
	}
	return math.Pow(base, 365/days) - 1
}

// Days returns the calendar length of a return series.
func Days(series models.ReturnSeries) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1].Date.Sub(series[0].Start).Hours() / 24
}
