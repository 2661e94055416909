package service

import (
	"context"

	"PriceCast/internal/domain/models"
)

// MarketData resolves a data source and serves closes and symbols from it.
type MarketData interface {
	History(ctx context.Context, source models.DataSource, q models.SeriesQuery) (models.PriceSeries, error)
	Symbols(ctx context.Context, source models.DataSource, localDir string) (models.DataSource, []string, error)
}
