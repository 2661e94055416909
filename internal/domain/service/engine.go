package service

import (
	"context"

	"PriceCast/internal/domain/models"
)

// Trainer fits a forecasting model on a close series.
type Trainer interface {
	Train(ctx context.Context, req models.EngineTrainRequest) (models.EngineTrainResult, error)
}

// Forecaster produces a forecast from the latest model for a ticker.
type Forecaster interface {
	Predict(ctx context.Context, req models.EnginePredictRequest) (models.EnginePrediction, error)
}
