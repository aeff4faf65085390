package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowType classifies a transaction by the direction of money it moves
type CashFlowType string

const (
	CashFlowBuy        CashFlowType = "buy"
	CashFlowSell       CashFlowType = "sell"
	CashFlowDividend   CashFlowType = "dividend"
	CashFlowDeposit    CashFlowType = "deposit"
	CashFlowWithdrawal CashFlowType = "withdrawal"
	CashFlowFee        CashFlowType = "fee"
)

// IsTrade reports whether the type changes a security position
func (t CashFlowType) IsTrade() bool {
	return t == CashFlowBuy || t == CashFlowSell
}

// Transaction is one normalised broker log line. Quantity is never
// negative; the direction is carried by CashFlowType.
type Transaction struct {
	Date          time.Time       `json:"date"`
	InstrumentID  string          `json:"instrument_id"` // ISIN
	Product       string          `json:"product"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`    // per unit, in Currency
	Currency      string          `json:"currency"` // instrument currency
	Fee           decimal.Decimal `json:"fee"`
	FeeCurrency   string          `json:"fee_currency"`
	Value         decimal.Decimal `json:"value"` // unsigned amount in ValueCurrency, zero when absent
	ValueCurrency string          `json:"value_currency,omitempty"`
	CashFlowType  CashFlowType    `json:"cash_flow_type"`
	OrderID       string          `json:"order_id,omitempty"`
	Line          int             `json:"line"` // 1-based line in the source file
}

// LocalValue returns quantity × price in the instrument currency.
func (t Transaction) LocalValue() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Holding is an open position reconstructed from transactions
type Holding struct {
	InstrumentID string          `json:"instrument_id"`
	Product      string          `json:"product"`
	Currency     string          `json:"currency"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// Issue records a row the normaliser skipped or repaired
type Issue struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	Filled bool   `json:"filled"` // true when the row was kept with a filled value
}
