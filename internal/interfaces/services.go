package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceSource supplies daily bars for instruments and benchmarks
type PriceSource interface {
	// Bars returns newest-first bars covering [from, to]
	Bars(ctx context.Context, ticker string, from, to time.Time) ([]models.EODBar, error)
}

// BenchmarkService fetches the reference index series
type BenchmarkService interface {
	PriceSource

	// Fetch returns the ascending benchmark price series for [from, to]
	Fetch(ctx context.Context, ticker string, from, to time.Time) (*models.BenchmarkSeries, error)
}

// Converter turns amounts in one currency into another on a date
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error)
}

// ReportWriter persists an analysis report and its charts
type ReportWriter interface {
	// Write stores the report and returns the paths written
	Write(report *models.Report) ([]string, error)
}
