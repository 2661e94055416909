package models

import (
	"context"

	"PriceCast/pkg/validation"
)

// Request and response bodies of the forecasting API. Field names, bounds and
// defaults are part of the wire contract.

// TrainRequest asks for a model to be trained on a ticker's history.
type TrainRequest struct {
	Ticker       string           `json:"ticker" query:"ticker" validate:"required" example:"RELIANCE"`
	Period       string           `json:"period" query:"period" default:"5y" example:"5y"`
	InputLen     int              `json:"input_len" query:"input_len" default:"60" validate:"gte=20,lte=512"`
	PredLen      int              `json:"pred_len" query:"pred_len" default:"5" validate:"gte=1,lte=120"`
	Epochs       int              `json:"epochs" query:"epochs" default:"30" validate:"gte=1,lte=500"`
	BatchSize    int              `json:"batch_size" query:"batch_size" default:"32" validate:"gte=8,lte=512"`
	LearningRate float64          `json:"learning_rate" query:"learning_rate" default:"0.001" validate:"gt=0,lt=1"`
	DataSource   DataSource       `json:"data_source" query:"data_source" default:"auto" validate:"oneof=auto local yfinance"`
	LocalDataDir Optional[string] `json:"local_data_dir" query:"local_data_dir"`
}

// PredictRequest asks a trained model for a forecast.
type PredictRequest struct {
	Ticker        string           `json:"ticker" query:"ticker" validate:"required" example:"^NSEI"`
	Horizon       int              `json:"horizon" query:"horizon" default:"10" validate:"gte=1,lte=120"`
	HistoryPoints int              `json:"history_points" query:"history_points" default:"90" validate:"gte=20,lte=500"`
	DataSource    DataSource       `json:"data_source" query:"data_source" default:"auto" validate:"oneof=auto local yfinance"`
	LocalDataDir  Optional[string] `json:"local_data_dir" query:"local_data_dir"`
}

// PricePoint is one observation or forecast step.
type PricePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrainResponse reports a completed training run.
type TrainResponse struct {
	Ticker            string     `json:"ticker"`
	Source            DataSource `json:"source" validate:"oneof=auto local yfinance"`
	Transform         string     `json:"transform"`
	ArtifactPath      string     `json:"artifact_path"`
	TrainLoss         float64    `json:"train_loss"`
	ValLoss           float64    `json:"val_loss"`
	ValRMSE           float64    `json:"val_rmse"`
	DirectionAccuracy float64    `json:"direction_accuracy"`
	InputLen          int        `json:"input_len"`
	PredLen           int        `json:"pred_len"`
	TrainSamples      int        `json:"train_samples"`
	ValSamples        int        `json:"val_samples"`
	TrainedAtUTC      string     `json:"trained_at_utc"`
}

// PredictResponse carries recent history and the forecast that follows it.
type PredictResponse struct {
	Ticker        string       `json:"ticker"`
	Source        DataSource   `json:"source" validate:"oneof=auto local yfinance"`
	Transform     string       `json:"transform"`
	ModelArtifact string       `json:"model_artifact"`
	InputLen      int          `json:"input_len"`
	PredLen       int          `json:"pred_len"`
	Horizon       int          `json:"horizon"`
	LastClose     float64      `json:"last_close"`
	History       []PricePoint `json:"history"`
	Forecast      []PricePoint `json:"forecast"`
}

// SymbolsResponse lists the tickers a source can serve.
type SymbolsResponse struct {
	Source  DataSource `json:"source" validate:"oneof=auto local yfinance"`
	Symbols []string   `json:"symbols"`
}

// HistoryResponse is a chronological close series.
type HistoryResponse struct {
	Ticker  string       `json:"ticker"`
	Source  DataSource   `json:"source" validate:"oneof=auto local yfinance"`
	History []PricePoint `json:"history"`
}

// SymbolsRequest is bound from the /symbols query string.
type SymbolsRequest struct {
	DataSource   DataSource       `json:"data_source" query:"data_source" default:"auto" validate:"oneof=auto local yfinance"`
	LocalDataDir Optional[string] `json:"local_data_dir" query:"local_data_dir"`
}

// HistoryRequest is bound from the /history query string. Limit 0 returns
// the whole period.
type HistoryRequest struct {
	Ticker       string           `json:"ticker" query:"ticker" validate:"required"`
	Period       string           `json:"period" query:"period" default:"5y"`
	Limit        int              `json:"limit" query:"limit" default:"0" validate:"gte=0,lte=5000"`
	DataSource   DataSource       `json:"data_source" query:"data_source" default:"auto" validate:"oneof=auto local yfinance"`
	LocalDataDir Optional[string] `json:"local_data_dir" query:"local_data_dir"`
}

// ModelRunsRequest filters recorded training runs.
type ModelRunsRequest struct {
	Ticker string `json:"ticker" query:"ticker"`
	Limit  int    `json:"limit" query:"limit" default:"50" validate:"gte=1,lte=500"`
}

func ParseTrainRequest(ctx context.Context, raw map[string]any) (TrainRequest, error) {
	return validation.Parse[TrainRequest](ctx, raw)
}

func ParsePredictRequest(ctx context.Context, raw map[string]any) (PredictRequest, error) {
	return validation.Parse[PredictRequest](ctx, raw)
}

func ParsePricePoint(ctx context.Context, raw map[string]any) (PricePoint, error) {
	return validation.Parse[PricePoint](ctx, raw)
}

func ParseTrainResponse(ctx context.Context, raw map[string]any) (TrainResponse, error) {
	return validation.Parse[TrainResponse](ctx, raw)
}

func ParsePredictResponse(ctx context.Context, raw map[string]any) (PredictResponse, error) {
	return validation.Parse[PredictResponse](ctx, raw)
}

func ParseSymbolsResponse(ctx context.Context, raw map[string]any) (SymbolsResponse, error) {
	return validation.Parse[SymbolsResponse](ctx, raw)
}

func ParseHistoryResponse(ctx context.Context, raw map[string]any) (HistoryResponse, error) {
	return validation.Parse[HistoryResponse](ctx, raw)
}

// Serialize renders any contract value as a plain wire mapping.
func Serialize(v any) (map[string]any, error) {
	return validation.ToMap(v)
}
