package usecase

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	applogger "PriceCast/pkg/logger"
	pkgmetrics "PriceCast/pkg/metrics"
	"PriceCast/pkg/validation"
)

// ForecastUseCase asks the engine for a forecast from the latest observed closes.
type ForecastUseCase struct {
	market     service.MarketData
	forecaster service.Forecaster
	lookback   string
	metrics    domrepo.Metrics
	l          *applogger.Logger
}

// NewForecastUseCase builds the use case. lookback is the period fetched
// before every prediction, e.g. "2y".
func NewForecastUseCase(market service.MarketData, forecaster service.Forecaster, lookback string, metrics domrepo.Metrics, l *applogger.Logger) *ForecastUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ForecastUseCase{market: market, forecaster: forecaster, lookback: lookback, metrics: metrics, l: l}
}

// Predict returns the forecast together with the trailing history_points
// observations. req must already be validated.
func (uc *ForecastUseCase) Predict(ctx context.Context, req models.PredictRequest) (models.PredictResponse, error) {
	start := time.Now()
	resp, err := uc.predict(ctx, req)
	source := string(resp.Source)
	if source == "" {
		source = string(req.DataSource)
	}
	uc.metrics.RecordPrediction(source, err == nil)
	uc.metrics.RecordLatency("predict", time.Since(start))
	if err != nil {
		uc.l.Warn("prediction failed",
			applogger.String("ticker", req.Ticker),
			applogger.String("data_source", string(req.DataSource)),
			applogger.Error(err),
		)
		return models.PredictResponse{}, err
	}
	return resp, nil
}

func (uc *ForecastUseCase) predict(ctx context.Context, req models.PredictRequest) (models.PredictResponse, error) {
	series, err := uc.market.History(ctx, req.DataSource, models.SeriesQuery{
		Ticker:       req.Ticker,
		Period:       uc.lookback,
		LocalDataDir: req.LocalDataDir.OrElse(""),
	})
	if err != nil {
		return models.PredictResponse{}, fmt.Errorf("fetch history: %w", err)
	}
	if series.Len() < req.HistoryPoints {
		return models.PredictResponse{Source: series.Source}, fmt.Errorf("%w: %s has %d closes, history_points is %d",
			models.ErrInsufficientHistory, req.Ticker, series.Len(), req.HistoryPoints)
	}
	lastClose, _ := series.LastClose()

	engineStart := time.Now()
	pred, err := uc.forecaster.Predict(ctx, models.EnginePredictRequest{
		Ticker:  req.Ticker,
		Horizon: req.Horizon,
		Series:  series.Points,
	})
	uc.metrics.RecordEngineLatency("predict", time.Since(engineStart))
	if err != nil {
		return models.PredictResponse{Source: series.Source}, err
	}

	if err := validation.Struct(ctx, pred); err != nil {
		return models.PredictResponse{Source: series.Source}, fmt.Errorf("%w: %v", models.ErrInvalidEngineReply, err)
	}
	if len(pred.Forecast) != req.Horizon {
		uc.l.Warn("forecast length differs from horizon",
			applogger.String("ticker", req.Ticker),
			applogger.Int("horizon", req.Horizon),
			applogger.Int("forecast_points", len(pred.Forecast)),
		)
	}

	resp := models.PredictResponse{
		Ticker:        req.Ticker,
		Source:        series.Source,
		Transform:     pred.Transform,
		ModelArtifact: pred.ModelArtifact,
		InputLen:      pred.InputLen,
		PredLen:       pred.PredLen,
		Horizon:       req.Horizon,
		LastClose:     lastClose,
		History:       series.Tail(req.HistoryPoints),
		Forecast:      pred.Forecast,
	}
	if resp.Forecast == nil {
		resp.Forecast = []models.PricePoint{}
	}
	if err := validation.Struct(ctx, resp); err != nil {
		return models.PredictResponse{Source: series.Source}, fmt.Errorf("%w: %v", models.ErrInvalidEngineReply, err)
	}
	return resp, nil
}
