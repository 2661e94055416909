package repository

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
)

// PriceProvider serves close series for one concrete data source.
type PriceProvider interface {
	Source() models.DataSource
	History(ctx context.Context, q models.SeriesQuery) (models.PriceSeries, error)
	// Symbols lists servable tickers; localDir only matters to the local provider.
	Symbols(ctx context.Context, localDir string) ([]string, error)
}

// SeriesArchive keeps fetched closes so they survive upstream outages.
type SeriesArchive interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, series models.PriceSeries) error
	// Load returns closes on or after since, oldest first; limit 0 means all.
	Load(ctx context.Context, ticker string, since time.Time, limit int) (models.PriceSeries, error)
	Close() error
}

// ModelRegistry records completed training runs.
type ModelRegistry interface {
	Save(ctx context.Context, run *models.ModelRun) error
	List(ctx context.Context, ticker string, limit int) ([]models.ModelRun, error)
	Close() error
}

// EventPublisher announces domain events to other systems.
type EventPublisher interface {
	PublishModelTrained(ctx context.Context, ev models.ModelTrainedEvent) error
	Close() error
}

// JobStore keeps asynchronous training job state.
type JobStore interface {
	Put(ctx context.Context, job models.TrainJob) error
	Get(ctx context.Context, id string) (models.TrainJob, error)
}

type Metrics interface {
	RecordTraining(source string, ok bool)
	RecordPrediction(source string, ok bool)
	RecordFetch(source string, ok bool)
	RecordError(kind string)
	RecordLastClose(ticker string, price float64)
	RecordValRMSE(ticker string, rmse float64)
	RecordEngineLatency(op string, d time.Duration)
	RecordLatency(op string, d time.Duration)
}
