// Package interfaces defines service contracts for folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// EODHDClient provides daily bars from the EODHD API
type EODHDClient interface {
	// DailyBars returns bars between from and to inclusive, newest first
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.EODBar, error)
}

// FXClient provides daily reference exchange rates
type FXClient interface {
	// Rate returns units of quote per one unit of base on date, using the
	// nearest earlier published rate when date has none.
	Rate(ctx context.Context, base, quote string, date time.Time) (float64, error)
}
