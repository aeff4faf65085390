// Package signals provides rolling indicators over dated series
package signals

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/folio/internal/models"
)

// SMA calculates the simple moving average of the last period values
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	return stat.Mean(values[len(values)-period:], nil)
}

// EMA calculates the exponential moving average of values, seeded with the
// SMA of the first period values. Values are oldest first.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}

	multiplier := 2.0 / float64(period+1)
	ema := stat.Mean(values[:period], nil)
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema
}

// MovingAverage returns the trailing simple moving average of an ascending
// series. The first point is dated at the period-th input point.
func MovingAverage(points []models.PricePoint, period int) []models.PricePoint {
	if period <= 1 || len(points) < period {
		return nil
	}

	out := make([]models.PricePoint, 0, len(points)-period+1)
	sum := 0.0
	for i, p := range points {
		sum += p.Price
		if i >= period {
			sum -= points[i-period].Price
		}
		if i >= period-1 {
			out = append(out, models.PricePoint{Date: p.Date, Price: sum / float64(period)})
		}
	}
	return out
}

// RollingVolatility returns the annualised sample standard deviation of each
// trailing window of returns, dated at the window's last period.
func RollingVolatility(series models.ReturnSeries, window int, periodsPerYear float64) []models.PricePoint {
	if window < 2 || len(series) < window {
		return nil
	}

	values := series.Values()
	scale := math.Sqrt(periodsPerYear)
	out := make([]models.PricePoint, 0, len(series)-window+1)
	for end := window; end <= len(values); end++ {
		out = append(out, models.PricePoint{
			Date:  series[end-1].Date,
			Price: stat.StdDev(values[end-window:end], nil) * scale,
		})
	}
	return out
}
