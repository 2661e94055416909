package engine

import (
	"context"
	"fmt"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"
)

type HTTPTrainer struct{ base *HTTPServiceBase }

func NewHTTPTrainer(cfg *config.Config) *HTTPTrainer {
	return &HTTPTrainer{base: NewHTTPServiceBase(cfg)}
}

func (t *HTTPTrainer) Train(ctx context.Context, req models.EngineTrainRequest) (models.EngineTrainResult, error) {
	var result models.EngineTrainResult
	if err := t.base.PostJSONWithRetry(ctx, "/train", req, &result); err != nil {
		return result, fmt.Errorf("engine train %s: %w", req.Ticker, err)
	}
	return result, nil
}

var _ domsvc.Trainer = (*HTTPTrainer)(nil)
