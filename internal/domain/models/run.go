package models

import "time"

// ModelRun is one recorded training run.
type ModelRun struct {
	ID uint `json:"id"`
	TrainResponse
	Period       string    `json:"period"`
	Epochs       int       `json:"epochs"`
	BatchSize    int       `json:"batch_size"`
	LearningRate float64   `json:"learning_rate"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewModelRun pairs a training result with the request that produced it.
func NewModelRun(req TrainRequest, resp TrainResponse, at time.Time) ModelRun {
	return ModelRun{
		TrainResponse: resp,
		Period:        req.Period,
		Epochs:        req.Epochs,
		BatchSize:     req.BatchSize,
		LearningRate:  req.LearningRate,
		CreatedAt:     at,
	}
}

// EventModelTrained names the event emitted after a successful training run.
const EventModelTrained = "model.trained"

// ModelTrainedEvent is published after a run is recorded.
type ModelTrainedEvent struct {
	Event      string        `json:"event"`
	Run        TrainResponse `json:"run"`
	Period     string        `json:"period"`
	OccurredAt time.Time     `json:"occurred_at"`
}
