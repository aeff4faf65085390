package risk

import (
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// MaxDrawdown walks the compounded value of a return series, starting at 1.0
// on start, and returns the largest peak-to-trough decline.
func MaxDrawdown(start time.Time, series models.ReturnSeries) models.Drawdown {
	var dd models.Drawdown

	level := 1.0
	peak := 1.0
	peakDate := start
	underwater := false

	for _, p := range series {
		level *= 1 + p.Return

		if level >= peak {
			if underwater && dd.Recovery.IsZero() && dd.Peak.Equal(peakDate) {
				dd.Recovery = p.Date
			}
			peak = level
			peakDate = p.Date
			underwater = false
			continue
		}

		underwater = true
		depth := (peak - level) / peak
		if depth > dd.Depth {
			dd = models.Drawdown{Depth: depth, Peak: peakDate, Trough: p.Date}
		}
	}
	return dd
}

// DrawdownSeries returns the decline from the running peak at each point of
// a growth curve, as negative fractions (0 at a new high).
func DrawdownSeries(curve []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, len(curve))
	peak := 0.0
	for i, p := range curve {
		if p.Price > peak {
			peak = p.Price
		}
		dd := 0.0
		if peak > 0 {
			dd = p.Price/peak - 1
		}
		out[i] = models.PricePoint{Date: p.Date, Price: dd}
	}
	return out
}
