package ingest

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// Snapshot folds trades into the open positions at the end of the log.
// Positions that are flat or short are left out. The result is sorted by
// product name, then instrument id.
func Snapshot(transactions []models.Transaction) []models.Holding {
	byID := make(map[string]*models.Holding)
	for _, tx := range transactions {
		if !tx.CashFlowType.IsTrade() || tx.InstrumentID == "" {
			continue
		}
		h, ok := byID[tx.InstrumentID]
		if !ok {
			h = &models.Holding{InstrumentID: tx.InstrumentID, Quantity: decimal.Zero}
			byID[tx.InstrumentID] = h
		}
		if tx.Product != "" {
			h.Product = tx.Product
		}
		if tx.Currency != "" {
			h.Currency = tx.Currency
		}
		if tx.CashFlowType == models.CashFlowBuy {
			h.Quantity = h.Quantity.Add(tx.Quantity)
		} else {
			h.Quantity = h.Quantity.Sub(tx.Quantity)
		}
	}

	holdings := make([]models.Holding, 0, len(byID))
	for _, h := range byID {
		if h.Quantity.IsPositive() {
			holdings = append(holdings, *h)
		}
	}
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Product != holdings[j].Product {
			return holdings[i].Product < holdings[j].Product
		}
		return holdings[i].InstrumentID < holdings[j].InstrumentID
	})
	return holdings
}
