// Package valuation turns a transaction log into portfolio values on
// reporting dates.
//
// The portfolio is the securities sleeve: buying adds money to it, selling
// and dividends take money out. Cash deposits and withdrawals at the broker
// do not move the sleeve's value and are ignored.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrNoTrades is returned when the log holds no buy or sell in range.
var ErrNoTrades = errors.New("no trades to value")

// priceLookback is how many days before the first reporting date prices
// are requested, so the first date has an as-of close.
const priceLookback = 10

// Options configures Build
type Options struct {
	BaseCurrency string
	Frequency    Frequency
	From         time.Time // zero: first trade
	To           time.Time // zero: now
}

// preloader is implemented by FX clients that can fetch a range at once.
type preloader interface {
	Preload(ctx context.Context, currency string, from, to time.Time) error
}

// Builder values positions with market prices and converts to the base
// currency.
type Builder struct {
	prices    interfaces.PriceSource
	fx        interfaces.Converter
	tickerFor func(instrumentID string) string
	logger    *common.Logger
	now       func() time.Time
}

// NewBuilder creates a Builder. tickerFor maps an instrument id to a price
// source ticker; nil uses the id unchanged. prices may be nil, in which
// case positions are marked at their last traded price.
func NewBuilder(prices interfaces.PriceSource, fx interfaces.Converter, tickerFor func(string) string, logger *common.Logger) *Builder {
	if tickerFor == nil {
		tickerFor = func(id string) string { return id }
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Builder{prices: prices, fx: fx, tickerFor: tickerFor, logger: logger, now: time.Now}
}

// instrument is the price history and position bookkeeping for one ISIN
type instrument struct {
	id       string
	label    string
	currency string
	ticker   string
	market   models.BenchmarkSeries // ascending closes
	trades   models.BenchmarkSeries // ascending trade prices
	quantity float64
	traded   bool
}

func (in *instrument) priceAsOf(date time.Time) (float64, bool) {
	if p, ok := in.market.PriceAsOf(date); ok {
		return p, true
	}
	return in.trades.PriceAsOf(date)
}

// Build values the portfolio on each reporting date. Each point's
// NetCashFlow is the external flow since the previous point, so the first
// point carries none. Leading points worth nothing are dropped.
func (b *Builder) Build(ctx context.Context, transactions []models.Transaction, opts Options) ([]models.ValuationPoint, error) {
	base := strings.ToUpper(opts.BaseCurrency)
	if base == "" {
		base = "EUR"
	}

	txs := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.CashFlowType.IsTrade() || tx.CashFlowType == models.CashFlowDividend {
			txs = append(txs, tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	firstTrade := time.Time{}
	for _, tx := range txs {
		if tx.CashFlowType.IsTrade() {
			firstTrade = tx.Date
			break
		}
	}
	if firstTrade.IsZero() {
		return nil, ErrNoTrades
	}

	start := truncateDay(firstTrade)
	if !opts.From.IsZero() && truncateDay(opts.From).After(start) {
		start = truncateDay(opts.From)
	}
	end := opts.To
	if end.IsZero() {
		end = b.now()
	}
	end = truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range %s to %s", ErrNoTrades, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	instruments := b.instruments(ctx, txs, start, end)
	b.preloadFX(ctx, instruments, txs, base, start, end)

	dates := ReportingDates(start, end, opts.Frequency)
	points := make([]models.ValuationPoint, 0, len(dates))

	next := 0
	for i, date := range dates {
		cutoff := date.AddDate(0, 0, 1)
		flow := 0.0
		for next < len(txs) && txs[next].Date.Before(cutoff) {
			tx := txs[next]
			next++
			in := instruments[tx.InstrumentID]
			switch tx.CashFlowType {
			case models.CashFlowBuy:
				in.quantity += tx.Quantity.InexactFloat64()
			case models.CashFlowSell:
				in.quantity -= tx.Quantity.InexactFloat64()
			}
			// Flows on or before the first reporting date are part of the
			// starting value, not a sub-period flow.
			if i == 0 {
				continue
			}
			f, err := b.cashFlow(ctx, tx, base)
			if err != nil {
				return nil, err
			}
			flow += f
		}

		point := models.ValuationPoint{Date: date, NetCashFlow: flow, Exposure: map[string]float64{}}
		for _, in := range instruments {
			if in.quantity <= 1e-9 {
				continue
			}
			price, ok := in.priceAsOf(date)
			if !ok {
				continue
			}
			v, err := b.convert(ctx, in.quantity*price, in.currency, base, date)
			if err != nil {
				return nil, err
			}
			point.Value += v
			point.Exposure[in.label] += v
		}
		points = append(points, point)
	}

	for len(points) > 0 && points[0].Value <= 0 {
		points = points[1:]
		if len(points) > 0 {
			points[0].NetCashFlow = 0
		}
	}

	b.logger.Info().
		Int("points", len(points)).
		Int("instruments", len(instruments)).
		Str("frequency", string(opts.Frequency)).
		Str("base_currency", base).
		Msg("Portfolio valued")
	return points, nil
}

// instruments loads price history for every traded instrument. An
// instrument without market prices is marked at its trade prices.
func (b *Builder) instruments(ctx context.Context, txs []models.Transaction, start, end time.Time) map[string]*instrument {
	out := make(map[string]*instrument)
	for _, tx := range txs {
		in, ok := out[tx.InstrumentID]
		if !ok {
			in = &instrument{id: tx.InstrumentID, label: tx.InstrumentID, ticker: b.tickerFor(tx.InstrumentID)}
			out[tx.InstrumentID] = in
		}
		if tx.Product != "" {
			in.label = tx.Product
		}
		if tx.CashFlowType.IsTrade() {
			in.traded = true
			if in.currency == "" {
				in.currency = tx.Currency
			}
			if p := tx.Price.InexactFloat64(); p > 0 {
				in.trades.Points = append(in.trades.Points, models.PricePoint{Date: truncateDay(tx.Date), Price: p})
			}
		}
	}

	for _, in := range out {
		if in.currency == "" {
			in.currency = "EUR"
		}
		if b.prices == nil || !in.traded {
			continue
		}
		bars, err := b.prices.Bars(ctx, in.ticker, start.AddDate(0, 0, -priceLookback), end)
		if err != nil {
			b.logger.Warn().Str("instrument", in.id).Str("ticker", in.ticker).Err(err).Msg("No market prices, using trade prices")
			continue
		}
		in.market = models.BenchmarkFromBars(in.ticker, bars)
	}
	return out
}

func (b *Builder) preloadFX(ctx context.Context, instruments map[string]*instrument, txs []models.Transaction, base string, start, end time.Time) {
	p, ok := b.fx.(preloader)
	if !ok {
		return
	}
	currencies := map[string]bool{base: true}
	for _, in := range instruments {
		currencies[in.currency] = true
	}
	for _, tx := range txs {
		currencies[tx.ValueCurrency] = true
		currencies[tx.FeeCurrency] = true
	}
	for cur := range currencies {
		if cur == "" || cur == "EUR" {
			continue
		}
		if err := p.Preload(ctx, cur, start, end); err != nil {
			b.logger.Warn().Str("currency", cur).Err(err).Msg("FX preload failed")
		}
	}
}

// cashFlow is the external flow a transaction brings into the sleeve, in
// base currency: buy cost plus fee in, sale proceeds net of fee and
// dividends out.
func (b *Builder) cashFlow(ctx context.Context, tx models.Transaction, base string) (float64, error) {
	amount, currency := tx.Value, tx.ValueCurrency
	if amount.IsZero() || currency == "" {
		amount, currency = tx.LocalValue(), tx.Currency
	}
	gross, err := b.convert(ctx, amount.InexactFloat64(), currency, base, tx.Date)
	if err != nil {
		return 0, err
	}
	fee, err := b.convert(ctx, tx.Fee.InexactFloat64(), tx.FeeCurrency, base, tx.Date)
	if err != nil {
		return 0, err
	}

	switch tx.CashFlowType {
	case models.CashFlowBuy:
		return gross + fee, nil
	case models.CashFlowSell:
		return -(gross - fee), nil
	case models.CashFlowDividend:
		return -gross, nil
	}
	return 0, nil
}

func (b *Builder) convert(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error) {
	if amount == 0 || from == "" || strings.EqualFold(from, to) {
		return amount, nil
	}
	if b.fx == nil {
		return 0, fmt.Errorf("no FX source to convert %s to %s", from, to)
	}
	v, err := b.fx.Convert(ctx, amount, from, to, date)
	if err != nil {
		return 0, fmt.Errorf("convert %s to %s on %s: %w", from, to, date.Format("2006-01-02"), err)
	}
	return v, nil
}
