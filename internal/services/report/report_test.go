package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// month returns the last day of the m-th month after January 2024.
func month(m int) time.Time {
	return time.Date(2024, time.Month(m+2), 0, 0, 0, 0, 0, time.UTC)
}

func ptr(f float64) *float64 { return &f }

// sampleReport builds a four-month report with two instruments.
func sampleReport() *models.Report {
	returns := models.ReturnSeries{
		{Start: month(0), Date: month(1), Return: 0.10},
		{Start: month(1), Date: month(2), Return: -0.20},
		{Start: month(2), Date: month(3), Return: 0.05},
	}
	aligned := make([]models.AlignedReturn, len(returns))
	for i, r := range returns {
		aligned[i] = models.AlignedReturn{Start: r.Start, Date: r.Date, Portfolio: r.Return, Benchmark: r.Return / 2}
	}

	return &models.Report{
		RunID:        "run-1",
		GeneratedAt:  time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		BaseCurrency: "USD",
		Benchmark:    "GSPC.INDX",
		From:         month(0),
		To:           month(3),
		StartValue:   1000,
		EndValue:     1250,
		NetCashFlow:  300,
		TWR:          -0.076,
		BenchmarkTWR: ptr(-0.036),
		XIRR:         ptr(-0.21),
		Returns:      returns,
		Aligned:      aligned,
		Valuations: []models.ValuationPoint{
			{Date: month(0), Value: 1000, Exposure: map[string]float64{"APPLE": 1000}},
			{Date: month(1), Value: 1100, Exposure: map[string]float64{"APPLE": 1100}},
			{Date: month(2), Value: 1180, NetCashFlow: 300, Exposure: map[string]float64{"APPLE": 880, "VANGUARD": 300}},
			{Date: month(3), Value: 1250, Exposure: map[string]float64{"APPLE": 930, "VANGUARD": 320}},
		},
		Risk: &models.RiskMetrics{
			Observations:   3,
			PeriodsPerYear: 12,
			Volatility:     0.52,
			MaxDrawdown:    models.Drawdown{Depth: 0.2, Peak: month(1), Trough: month(2)},
			Relative: &models.RelativeMetrics{
				Observations: 3,
				Beta:         ptr(2),
				Correlation:  ptr(1),
			},
		},
		Holdings: []models.Holding{
			{InstrumentID: "US0378331005", Product: "APPLE", Currency: "USD", Quantity: decimal.NewFromInt(5)},
		},
		Transactions: 3,
		Issues: []models.Issue{
			{Line: 7, Field: "price", Reason: "derived from value / quantity", Filled: true},
			{Line: 9, Field: "isin", Reason: "missing"},
		},
		RollingVol: []models.PricePoint{
			{Date: month(2), Price: 0.3},
			{Date: month(3), Price: 0.35},
		},
	}
}
