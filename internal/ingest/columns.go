package ingest

import (
	"fmt"
	"strings"
)

type column int

const (
	colDate column = iota
	colTime
	colProduct
	colISIN
	colQuantity
	colPrice
	colLocalValue
	colValue
	colExchangeRate
	colFee
	colTotal
	colOrderID
	colCurrency
	colType
	numColumns
)

var columnNames = [numColumns]string{
	colDate:         "date",
	colTime:         "time",
	colProduct:      "product",
	colISIN:         "isin",
	colQuantity:     "quantity",
	colPrice:        "price",
	colLocalValue:   "local value",
	colValue:        "value",
	colExchangeRate: "exchange rate",
	colFee:          "fee",
	colTotal:        "total",
	colOrderID:      "order id",
	colCurrency:     "currency",
	colType:         "type",
}

func (c column) String() string { return columnNames[c] }

// headerAliases lists the lower-cased English and Dutch export headers
// recognised for each column.
var headerAliases = map[column][]string{
	colDate:         {"datum", "date"},
	colTime:         {"tijd", "time"},
	colProduct:      {"product"},
	colISIN:         {"isin", "instrument_id"},
	colQuantity:     {"aantal", "quantity"},
	colPrice:        {"koers", "price"},
	colLocalValue:   {"lokale waarde", "local value"},
	colValue:        {"waarde", "value"},
	colExchangeRate: {"wisselkoers", "exchange rate"},
	colFee: {
		"transactiekosten en/of kosten van derden",
		"transactiekosten",
		"transaction and/or third party fees",
		"transaction costs",
		"fee",
		"fees",
	},
	colTotal:    {"totaal", "total"},
	colOrderID:  {"order id", "order-id", "orderid"},
	colCurrency: {"currency", "valuta"},
	colType:     {"type", "soort", "cash_flow_type"},
}

var headerLookup = func() map[string]column {
	m := make(map[string]column)
	for c, names := range headerAliases {
		for _, n := range names {
			m[n] = c
		}
	}
	return m
}()

// moneyColumns are followed by an unnamed currency column in DEGIRO exports.
var moneyColumns = map[column]bool{
	colPrice:      true,
	colLocalValue: true,
	colValue:      true,
	colFee:        true,
	colTotal:      true,
}

// layout locates each known column in a header row. Positions are -1 when
// the column is absent.
type layout struct {
	index    [numColumns]int
	currency [numColumns]int
}

func newLayout(header []string) (*layout, error) {
	l := &layout{}
	for i := range l.index {
		l.index[i] = -1
		l.currency[i] = -1
	}

	var prev column = -1
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		if name == "" {
			if prev >= 0 && moneyColumns[prev] && l.currency[prev] < 0 {
				l.currency[prev] = i
			}
			prev = -1
			continue
		}
		c, ok := headerLookup[name]
		if !ok {
			prev = -1
			continue
		}
		if l.index[c] < 0 {
			l.index[c] = i
		}
		prev = c
	}

	if l.index[colDate] < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, colDate)
	}
	if l.index[colQuantity] < 0 && l.index[colType] < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, colQuantity)
	}
	return l, nil
}

func (l *layout) has(c column) bool { return l.index[c] >= 0 }

func (l *layout) field(record []string, c column) string {
	return cell(record, l.index[c])
}

// currencyOf returns the currency cell for a money column, falling back to
// a dedicated currency column.
func (l *layout) currencyOf(record []string, c column) string {
	if cur := strings.ToUpper(cell(record, l.currency[c])); cur != "" {
		return cur
	}
	return strings.ToUpper(cell(record, l.index[colCurrency]))
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
