package usecase

import (
	"context"
	"fmt"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
)

// MarketDataUseCase serves symbol lists and close histories.
type MarketDataUseCase struct {
	market service.MarketData
}

func NewMarketDataUseCase(market service.MarketData) *MarketDataUseCase {
	return &MarketDataUseCase{market: market}
}

func (uc *MarketDataUseCase) Symbols(ctx context.Context, req models.SymbolsRequest) (models.SymbolsResponse, error) {
	source, symbols, err := uc.market.Symbols(ctx, req.DataSource, req.LocalDataDir.OrElse(""))
	if err != nil {
		return models.SymbolsResponse{}, fmt.Errorf("list symbols: %w", err)
	}
	if symbols == nil {
		symbols = []string{}
	}
	return models.SymbolsResponse{Source: source, Symbols: symbols}, nil
}

func (uc *MarketDataUseCase) History(ctx context.Context, req models.HistoryRequest) (models.HistoryResponse, error) {
	series, err := uc.market.History(ctx, req.DataSource, models.SeriesQuery{
		Ticker:       req.Ticker,
		Period:       req.Period,
		LocalDataDir: req.LocalDataDir.OrElse(""),
		Limit:        req.Limit,
	})
	if err != nil {
		return models.HistoryResponse{}, fmt.Errorf("fetch history: %w", err)
	}
	history := series.Points
	if history == nil {
		history = []models.PricePoint{}
	}
	return models.HistoryResponse{Ticker: req.Ticker, Source: series.Source, History: history}, nil
}

// ModelRunsUseCase lists recorded training runs.
type ModelRunsUseCase struct {
	registry domrepo.ModelRegistry
}

func NewModelRunsUseCase(registry domrepo.ModelRegistry) *ModelRunsUseCase {
	return &ModelRunsUseCase{registry: registry}
}

func (uc *ModelRunsUseCase) List(ctx context.Context, req models.ModelRunsRequest) ([]models.ModelRun, error) {
	runs, err := uc.registry.List(ctx, req.Ticker, req.Limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []models.ModelRun{}
	}
	return runs, nil
}
