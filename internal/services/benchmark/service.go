// Package benchmark fetches daily price history for the reference index and
// for portfolio instruments, backed by the on-disk market cache.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrBenchmarkUnavailable is returned when price history cannot be obtained
// from the cache or the API.
var ErrBenchmarkUnavailable = errors.New("benchmark unavailable")

// defaultLookback bounds requests that have no start date
const defaultLookback = 10 // years

// Service implements BenchmarkService
type Service struct {
	store  interfaces.MarketDataStorage
	eodhd  interfaces.EODHDClient
	maxAge time.Duration
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a new benchmark service. eodhd may be nil, in which
// case only cached bars are served.
func NewService(store interfaces.MarketDataStorage, eodhd interfaces.EODHDClient, maxAge time.Duration, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		store:  store,
		eodhd:  eodhd,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch returns the ascending benchmark price series for [from, to].
func (s *Service) Fetch(ctx context.Context, ticker string, from, to time.Time) (*models.BenchmarkSeries, error) {
	bars, err := s.Bars(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	series := models.BenchmarkFromBars(ticker, bars)
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("%w: %s has no priced bars between %s and %s",
			ErrBenchmarkUnavailable, ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return &series, nil
}

// Bars returns newest-first bars for ticker within [from, to]. Cached bars
// are used when they cover the range and are younger than the max age;
// otherwise the range is fetched once and merged into the cache.
func (s *Service) Bars(ctx context.Context, ticker string, from, to time.Time) ([]models.EODBar, error) {
	from, to = s.bounds(from, to)

	cached, err := s.store.Load(ctx, ticker)
	if err != nil {
		cached = nil
	}
	if cached != nil && cached.Covers(from, to) && common.IsFreshAt(cached.EODUpdatedAt, s.maxAge, s.now()) {
		s.logger.Debug().Str("ticker", ticker).Msg("Serving bars from cache")
		return between(cached.EOD, from, to), nil
	}

	if s.eodhd == nil {
		return nil, fmt.Errorf("%w: %s: EODHD client not configured", ErrBenchmarkUnavailable, ticker)
	}

	fetchFrom, fetchTo := from, to
	if cached != nil && len(cached.EOD) > 0 {
		// Widen the request so the cached range stays contiguous
		if cached.From.Before(fetchFrom) {
			fetchFrom = cached.From
		}
	}

	bars, err := s.eodhd.DailyBars(ctx, ticker, fetchFrom, fetchTo)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBenchmarkUnavailable, ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: no bars returned", ErrBenchmarkUnavailable, ticker)
	}

	record := &models.MarketData{
		Ticker:       ticker,
		EOD:          bars,
		From:         fetchFrom,
		To:           fetchTo,
		EODUpdatedAt: s.now(),
	}
	if cached != nil {
		record.EOD = mergeEODBars(bars, cached.EOD)
		if !cached.To.IsZero() && cached.To.After(record.To) {
			record.To = cached.To
		}
	} else {
		sortNewestFirst(record.EOD)
	}

	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to cache EOD bars")
	}

	s.logger.Info().
		Str("ticker", ticker).
		Int("bars", len(bars)).
		Str("from", fetchFrom.Format("2006-01-02")).
		Str("to", fetchTo.Format("2006-01-02")).
		Msg("EOD bars fetched")

	return between(record.EOD, from, to), nil
}

// bounds truncates the range to whole days and fills open ends.
func (s *Service) bounds(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = s.now()
	}
	to = dayOf(to)
	if from.IsZero() {
		from = to.AddDate(-defaultLookback, 0, 0)
	}
	return dayOf(from), to
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// between filters newest-first bars to [from, to]
func between(bars []models.EODBar, from, to time.Time) []models.EODBar {
	out := make([]models.EODBar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// mergeEODBars combines fetched and cached bars; a fetched bar replaces a
// cached bar for the same day. The result is newest first.
func mergeEODBars(newBars, existingBars []models.EODBar) []models.EODBar {
	byDay := make(map[string]models.EODBar, len(newBars)+len(existingBars))
	for _, b := range existingBars {
		byDay[b.Date.Format("2006-01-02")] = b
	}
	for _, b := range newBars {
		byDay[b.Date.Format("2006-01-02")] = b
	}
	merged := make([]models.EODBar, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sortNewestFirst(merged)
	return merged
}

func sortNewestFirst(bars []models.EODBar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.After(bars[j].Date) })
}

var _ interfaces.BenchmarkService = (*Service)(nil)
