package engine

import (
	"context"
	"fmt"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"
)

type HTTPForecaster struct{ base *HTTPServiceBase }

func NewHTTPForecaster(cfg *config.Config) *HTTPForecaster {
	return &HTTPForecaster{base: NewHTTPServiceBase(cfg)}
}

func (f *HTTPForecaster) Predict(ctx context.Context, req models.EnginePredictRequest) (models.EnginePrediction, error) {
	var result models.EnginePrediction
	if err := f.base.PostJSONWithRetry(ctx, "/predict", req, &result); err != nil {
		return result, fmt.Errorf("engine predict %s: %w", req.Ticker, err)
	}
	return result, nil
}

var _ domsvc.Forecaster = (*HTTPForecaster)(nil)
