package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// MarketDataStorage caches fetched price history per ticker
type MarketDataStorage interface {
	Load(ctx context.Context, ticker string) (*models.MarketData, error)
	Save(ctx context.Context, data *models.MarketData) error
}
