package models

import (
	"sort"
	"time"
)

// MarketData is the cached price history for one ticker
type MarketData struct {
	Ticker       string    `json:"ticker"`
	EOD          []EODBar  `json:"eod"` // newest first
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	LastUpdated  time.Time `json:"last_updated"`
	EODUpdatedAt time.Time `json:"eod_updated_at"`
}

// Covers reports whether the cached bars were fetched for a range that
// includes [from, to]. Zero bounds are treated as open.
func (m *MarketData) Covers(from, to time.Time) bool {
	if m == nil || len(m.EOD) == 0 {
		return false
	}
	if !from.IsZero() && (m.From.IsZero() || m.From.After(from)) {
		return false
	}
	if !to.IsZero() && (m.To.IsZero() || m.To.Before(to)) {
		return false
	}
	return true
}

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
}

// PricePoint is a dated price
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// BenchmarkSeries is an ascending sequence of benchmark prices
type BenchmarkSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// BenchmarkFromBars builds an ascending series from newest-first bars,
// preferring the adjusted close.
func BenchmarkFromBars(ticker string, bars []EODBar) BenchmarkSeries {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		price := b.AdjClose
		if price <= 0 {
			price = b.Close
		}
		if price <= 0 {
			continue
		}
		points = append(points, PricePoint{Date: b.Date, Price: price})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return BenchmarkSeries{Ticker: ticker, Points: points}
}

// PriceAsOf returns the last price on or before date.
func (s BenchmarkSeries) PriceAsOf(date time.Time) (float64, bool) {
	target := date.Truncate(24 * time.Hour)
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.Truncate(24 * time.Hour).After(target)
	})
	if idx == 0 {
		return 0, false
	}
	return s.Points[idx-1].Price, true
}
