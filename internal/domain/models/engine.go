package models

// EngineTrainRequest is sent to the engine's /train endpoint.
type EngineTrainRequest struct {
	Ticker       string       `json:"ticker"`
	Source       DataSource   `json:"source"`
	InputLen     int          `json:"input_len"`
	PredLen      int          `json:"pred_len"`
	Epochs       int          `json:"epochs"`
	BatchSize    int          `json:"batch_size"`
	LearningRate float64      `json:"learning_rate"`
	Series       []PricePoint `json:"series"`
}

// EngineTrainResult is the engine's /train reply. Ticker, source and
// trained_at_utc may be left out by the engine; every other field is required.
type EngineTrainResult struct {
	Ticker            string     `json:"ticker" default:""`
	Source            DataSource `json:"source" default:"" validate:"omitempty,oneof=auto local yfinance"`
	Transform         string     `json:"transform" validate:"required"`
	ArtifactPath      string     `json:"artifact_path" validate:"required"`
	TrainLoss         float64    `json:"train_loss" validate:"gte=0"`
	ValLoss           float64    `json:"val_loss" validate:"gte=0"`
	ValRMSE           float64    `json:"val_rmse" validate:"gte=0"`
	DirectionAccuracy float64    `json:"direction_accuracy" validate:"gte=0,lte=1"`
	InputLen          int        `json:"input_len" validate:"gte=1"`
	PredLen           int        `json:"pred_len" validate:"gte=1"`
	TrainSamples      int        `json:"train_samples" validate:"gte=1"`
	ValSamples        int        `json:"val_samples" validate:"gte=0"`
	TrainedAtUTC      string     `json:"trained_at_utc" default:""`
}

// Response converts the reply into the public TrainResponse as is.
func (r EngineTrainResult) Response() TrainResponse {
	return TrainResponse{
		Ticker:            r.Ticker,
		Source:            r.Source,
		Transform:         r.Transform,
		ArtifactPath:      r.ArtifactPath,
		TrainLoss:         r.TrainLoss,
		ValLoss:           r.ValLoss,
		ValRMSE:           r.ValRMSE,
		DirectionAccuracy: r.DirectionAccuracy,
		InputLen:          r.InputLen,
		PredLen:           r.PredLen,
		TrainSamples:      r.TrainSamples,
		ValSamples:        r.ValSamples,
		TrainedAtUTC:      r.TrainedAtUTC,
	}
}

// EnginePredictRequest is sent to the engine's /predict endpoint.
type EnginePredictRequest struct {
	Ticker  string       `json:"ticker"`
	Horizon int          `json:"horizon"`
	Series  []PricePoint `json:"series"`
}

// EnginePrediction is the engine's /predict reply. All fields are required.
type EnginePrediction struct {
	Transform     string       `json:"transform" validate:"required"`
	ModelArtifact string       `json:"model_artifact" validate:"required"`
	InputLen      int          `json:"input_len" validate:"gte=1"`
	PredLen       int          `json:"pred_len" validate:"gte=1"`
	Forecast      []PricePoint `json:"forecast"`
}
