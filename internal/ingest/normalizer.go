// Package ingest reads broker transaction exports and normalises them into
// models.Transaction values.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrMalformedRow is returned under PolicyFail for the first row that
	// cannot be normalised.
	ErrMalformedRow = errors.New("malformed row")
)

// Policy selects how rows with missing values are handled
type Policy string

const (
	PolicySkip Policy = "skip" // drop the row
	PolicyFill Policy = "fill" // fill derivable values, drop the rest
	PolicyFail Policy = "fail" // abort on the first bad row
)

// Options configures a Normalizer
type Options struct {
	BaseCurrency     string
	Policy           Policy
	DecimalSeparator string
}

// Result is the outcome of normalising one export.
type Result struct {
	Transactions []models.Transaction
	Issues       []models.Issue
	Rows         int // data rows read, excluding the header
}

// Normalizer converts raw export rows into transactions
type Normalizer struct {
	opts   Options
	logger *common.Logger
}

// NewNormalizer creates a Normalizer. A nil logger is replaced with a silent one.
func NewNormalizer(opts Options, logger *common.Logger) *Normalizer {
	if opts.Policy == "" {
		opts.Policy = PolicyFill
	}
	if opts.DecimalSeparator == "" {
		opts.DecimalSeparator = ","
	}
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "EUR"
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// NormalizeFile opens path and normalises its contents.
func (n *Normalizer) NormalizeFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions: %w", err)
	}
	defer f.Close()
	return n.Normalize(f)
}

// Normalize reads a CSV export. The result is sorted by date; rows that share
// a date keep their relative order from the file, oldest-first exports and
// DEGIRO's newest-first exports both end up chronological.
func (n *Normalizer) Normalize(r io.Reader) (*Result, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(br)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	l, err := newLayout(header)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	newestFirst := 0
	var prev models.Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read transactions: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		res.Rows++

		tx, issues, ok := n.row(l, record, line)
		for _, is := range issues {
			if n.opts.Policy == PolicyFail && !is.Filled {
				return nil, fmt.Errorf("%w: line %d: %s: %s", ErrMalformedRow, is.Line, is.Field, is.Reason)
			}
			res.Issues = append(res.Issues, is)
			n.logger.Debug().Int("line", is.Line).Str("field", is.Field).Bool("filled", is.Filled).Msg(is.Reason)
		}
		if !ok {
			continue
		}
		if len(res.Transactions) > 0 {
			if tx.Date.Before(prev.Date) {
				newestFirst++
			} else if tx.Date.After(prev.Date) {
				newestFirst--
			}
		}
		res.Transactions = append(res.Transactions, tx)
		prev = tx
	}

	if newestFirst > 0 {
		reverse(res.Transactions)
	}
	sort.SliceStable(res.Transactions, func(i, j int) bool {
		return res.Transactions[i].Date.Before(res.Transactions[j].Date)
	})

	n.logger.Info().
		Int("rows", res.Rows).
		Int("transactions", len(res.Transactions)).
		Int("issues", len(res.Issues)).
		Str("policy", string(n.opts.Policy)).
		Msg("Transactions normalised")
	return res, nil
}

// row normalises one record. ok is false when the row is dropped.
func (n *Normalizer) row(l *layout, record []string, line int) (tx models.Transaction, issues []models.Issue, ok bool) {
	drop := func(field column, reason string) (models.Transaction, []models.Issue, bool) {
		issues = append(issues, models.Issue{Line: line, Field: field.String(), Reason: reason})
		return models.Transaction{}, issues, false
	}
	filled := func(field column, reason string) {
		issues = append(issues, models.Issue{Line: line, Field: field.String(), Reason: reason, Filled: true})
	}

	tx.Line = line
	tx.Product = l.field(record, colProduct)
	tx.InstrumentID = strings.ToUpper(l.field(record, colISIN))
	tx.OrderID = l.field(record, colOrderID)

	date, err := ParseDate(l.field(record, colDate), l.field(record, colTime))
	if err != nil {
		return drop(colDate, reasonFor(err))
	}
	tx.Date = date

	qty, qtyErr := ParseDecimal(l.field(record, colQuantity), n.opts.DecimalSeparator)
	if qtyErr != nil && !errors.Is(qtyErr, errEmpty) {
		return drop(colQuantity, qtyErr.Error())
	}

	if l.has(colType) && l.field(record, colType) != "" {
		t, err := parseCashFlowType(l.field(record, colType))
		if err != nil {
			return drop(colType, err.Error())
		}
		tx.CashFlowType = t
	} else {
		switch {
		case qtyErr != nil:
			return drop(colQuantity, "missing")
		case qty.IsZero():
			return drop(colQuantity, "zero quantity")
		case qty.IsNegative():
			tx.CashFlowType = models.CashFlowSell
		default:
			tx.CashFlowType = models.CashFlowBuy
		}
	}
	if qtyErr == nil {
		tx.Quantity = qty.Abs()
	}

	value, valueCur := n.amount(l, record, colValue)
	if value.IsZero() {
		value, valueCur = n.amount(l, record, colTotal)
	}
	tx.Value, tx.ValueCurrency = value.Abs(), valueCur

	fee, err := ParseDecimal(l.field(record, colFee), n.opts.DecimalSeparator)
	if err != nil && !errors.Is(err, errEmpty) {
		if n.opts.Policy != PolicyFill {
			return drop(colFee, err.Error())
		}
		fee = decimal.Zero
		filled(colFee, "unreadable, filled with zero")
	}
	tx.Fee = fee.Abs()
	tx.FeeCurrency = l.currencyOf(record, colFee)

	if !tx.CashFlowType.IsTrade() {
		if tx.Value.IsZero() {
			return drop(colValue, "missing amount")
		}
		if tx.ValueCurrency == "" {
			if n.opts.Policy != PolicyFill {
				return drop(colCurrency, "missing")
			}
			tx.ValueCurrency = n.opts.BaseCurrency
			filled(colCurrency, "filled with base currency")
		}
		tx.Currency = tx.ValueCurrency
		if tx.FeeCurrency == "" {
			tx.FeeCurrency = tx.Currency
		}
		return tx, issues, true
	}

	if tx.InstrumentID == "" {
		return drop(colISIN, "missing")
	}
	if qtyErr != nil || tx.Quantity.IsZero() {
		return drop(colQuantity, "missing")
	}

	tx.Currency = l.currencyOf(record, colPrice)
	if tx.Currency == "" {
		tx.Currency = l.currencyOf(record, colLocalValue)
	}

	price, err := ParseDecimal(l.field(record, colPrice), n.opts.DecimalSeparator)
	if err != nil {
		if !errors.Is(err, errEmpty) || n.opts.Policy != PolicyFill {
			return drop(colPrice, reasonFor(err))
		}
		derived, ok := n.derivePrice(l, record, tx)
		if !ok {
			return drop(colPrice, "missing and not derivable")
		}
		price = derived
		filled(colPrice, "derived from value / quantity")
	}
	tx.Price = price.Abs()

	if tx.Currency == "" {
		if n.opts.Policy != PolicyFill {
			return drop(colCurrency, "missing")
		}
		tx.Currency = n.opts.BaseCurrency
		filled(colCurrency, "filled with base currency")
	}
	if tx.FeeCurrency == "" {
		tx.FeeCurrency = tx.ValueCurrency
		if tx.FeeCurrency == "" {
			tx.FeeCurrency = n.opts.BaseCurrency
		}
	}
	return tx, issues, true
}

// derivePrice recovers a unit price from local value, or from value when it
// is in the instrument currency.
func (n *Normalizer) derivePrice(l *layout, record []string, tx models.Transaction) (decimal.Decimal, bool) {
	if local, cur := n.amount(l, record, colLocalValue); !local.IsZero() {
		if tx.Currency == "" || cur == "" || cur == tx.Currency {
			return local.Abs().Div(tx.Quantity), true
		}
	}
	if !tx.Value.IsZero() && (tx.Currency == "" || tx.ValueCurrency == tx.Currency) {
		return tx.Value.Div(tx.Quantity), true
	}
	return decimal.Zero, false
}

func (n *Normalizer) amount(l *layout, record []string, c column) (decimal.Decimal, string) {
	d, err := ParseDecimal(l.field(record, c), n.opts.DecimalSeparator)
	if err != nil {
		return decimal.Zero, ""
	}
	return d, l.currencyOf(record, c)
}

func parseCashFlowType(s string) (models.CashFlowType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "koop", "aankoop":
		return models.CashFlowBuy, nil
	case "sell", "verkoop":
		return models.CashFlowSell, nil
	case "dividend":
		return models.CashFlowDividend, nil
	case "deposit", "storting":
		return models.CashFlowDeposit, nil
	case "withdrawal", "opname":
		return models.CashFlowWithdrawal, nil
	case "fee", "kosten":
		return models.CashFlowFee, nil
	}
	return "", fmt.Errorf("unknown cash flow type %q", s)
}

func reasonFor(err error) string {
	if errors.Is(err, errEmpty) {
		return "missing"
	}
	return err.Error()
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas. Some locales export DEGIRO files that way.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		return ';'
	}
	return ','
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func reverse(txs []models.Transaction) {
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
}
