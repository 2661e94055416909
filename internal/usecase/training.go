package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	applogger "PriceCast/pkg/logger"
	pkgmetrics "PriceCast/pkg/metrics"
	"PriceCast/pkg/queue"
	"PriceCast/pkg/validation"
)

// TrainJobType is the queue message type of asynchronous training jobs.
const TrainJobType = "train"

// TrainingUseCase fetches a close series, has the engine fit a model on it
// and records the run.
type TrainingUseCase struct {
	market   service.MarketData
	trainer  service.Trainer
	registry domrepo.ModelRegistry
	events   domrepo.EventPublisher
	jobs     domrepo.JobStore
	queue    queue.Queue
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

func NewTrainingUseCase(
	market service.MarketData,
	trainer service.Trainer,
	registry domrepo.ModelRegistry,
	events domrepo.EventPublisher,
	jobs domrepo.JobStore,
	q queue.Queue,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *TrainingUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &TrainingUseCase{
		market:   market,
		trainer:  trainer,
		registry: registry,
		events:   events,
		jobs:     jobs,
		queue:    q,
		metrics:  metrics,
		l:        l,
		now:      time.Now,
	}
}

// Train runs one synchronous training. req must already be validated.
func (uc *TrainingUseCase) Train(ctx context.Context, req models.TrainRequest) (models.TrainResponse, error) {
	start := time.Now()
	resp, err := uc.train(ctx, req)
	source := string(resp.Source)
	if source == "" {
		source = string(req.DataSource)
	}
	uc.metrics.RecordTraining(source, err == nil)
	uc.metrics.RecordLatency("train", time.Since(start))
	if err != nil {
		uc.l.Warn("training failed",
			applogger.String("ticker", req.Ticker),
			applogger.String("data_source", string(req.DataSource)),
			applogger.Error(err),
		)
		return models.TrainResponse{}, err
	}
	uc.l.Info("training finished",
		applogger.String("ticker", resp.Ticker),
		applogger.String("source", string(resp.Source)),
		applogger.Float64("val_rmse", resp.ValRMSE),
		applogger.Duration("took", time.Since(start)),
	)
	return resp, nil
}

func (uc *TrainingUseCase) train(ctx context.Context, req models.TrainRequest) (models.TrainResponse, error) {
	series, err := uc.market.History(ctx, req.DataSource, models.SeriesQuery{
		Ticker:       req.Ticker,
		Period:       req.Period,
		LocalDataDir: req.LocalDataDir.OrElse(""),
	})
	if err != nil {
		return models.TrainResponse{}, fmt.Errorf("fetch history: %w", err)
	}
	if need := req.InputLen + req.PredLen; series.Len() < need {
		return models.TrainResponse{Source: series.Source}, fmt.Errorf("%w: %s has %d closes, training needs %d",
			models.ErrInsufficientHistory, req.Ticker, series.Len(), need)
	}

	engineStart := time.Now()
	result, err := uc.trainer.Train(ctx, models.EngineTrainRequest{
		Ticker:       req.Ticker,
		Source:       series.Source,
		InputLen:     req.InputLen,
		PredLen:      req.PredLen,
		Epochs:       req.Epochs,
		BatchSize:    req.BatchSize,
		LearningRate: req.LearningRate,
		Series:       series.Points,
	})
	uc.metrics.RecordEngineLatency("train", time.Since(engineStart))
	if err != nil {
		return models.TrainResponse{Source: series.Source}, err
	}

	if err := validation.Struct(ctx, result); err != nil {
		return models.TrainResponse{Source: series.Source}, fmt.Errorf("%w: %v", models.ErrInvalidEngineReply, err)
	}

	resp := result.Response()
	if resp.Ticker == "" {
		resp.Ticker = req.Ticker
	}
	if resp.Source == "" || resp.Source == models.SourceAuto {
		resp.Source = series.Source
	}
	if resp.TrainedAtUTC == "" {
		resp.TrainedAtUTC = uc.now().UTC().Format(time.RFC3339)
	}
	if err := validation.Struct(ctx, resp); err != nil {
		return models.TrainResponse{Source: series.Source}, fmt.Errorf("%w: %v", models.ErrInvalidEngineReply, err)
	}

	uc.record(ctx, req, resp)
	return resp, nil
}

// record persists and announces a finished run. Failures are logged, the
// trained model is still returned to the caller.
func (uc *TrainingUseCase) record(ctx context.Context, req models.TrainRequest, resp models.TrainResponse) {
	uc.metrics.RecordValRMSE(resp.Ticker, resp.ValRMSE)

	run := models.NewModelRun(req, resp, uc.now().UTC())
	if err := uc.registry.Save(ctx, &run); err != nil {
		uc.metrics.RecordError("registry_save")
		uc.l.Error("model run not recorded", applogger.String("ticker", resp.Ticker), applogger.Error(err))
	}

	ev := models.ModelTrainedEvent{
		Event:      models.EventModelTrained,
		Run:        resp,
		Period:     req.Period,
		OccurredAt: run.CreatedAt,
	}
	if err := uc.events.PublishModelTrained(ctx, ev); err != nil {
		uc.metrics.RecordError("event_publish")
		uc.l.Error("model.trained event not published", applogger.String("ticker", resp.Ticker), applogger.Error(err))
	}
}

// Submit queues a training request and returns the job in its queued state.
func (uc *TrainingUseCase) Submit(ctx context.Context, req models.TrainRequest) (models.TrainJob, error) {
	if uc.queue == nil {
		return models.TrainJob{}, fmt.Errorf("submit training: %w", queue.ErrNotRunning)
	}
	now := uc.now().UTC()
	job := models.TrainJob{
		ID:          uuid.NewString(),
		Status:      models.JobQueued,
		Request:     req,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	msg, err := queue.NewMessage(TrainJobType, job)
	if err != nil {
		return models.TrainJob{}, fmt.Errorf("build job message: %w", err)
	}
	msg.ID = job.ID

	if err := uc.jobs.Put(ctx, job); err != nil {
		return models.TrainJob{}, err
	}
	if err := uc.queue.Enqueue(ctx, msg); err != nil {
		job.Status = models.JobFailed
		job.Error = err.Error()
		job.UpdatedAt = uc.now().UTC()
		if perr := uc.jobs.Put(ctx, job); perr != nil {
			uc.l.Warn("job state not stored", applogger.String("job_id", job.ID), applogger.Error(perr))
		}
		return models.TrainJob{}, fmt.Errorf("enqueue training: %w", err)
	}
	uc.l.Info("training job queued", applogger.String("job_id", job.ID), applogger.String("ticker", req.Ticker))
	return job, nil
}

// JobStatus returns the current state of a submitted job.
func (uc *TrainingUseCase) JobStatus(ctx context.Context, id string) (models.TrainJob, error) {
	return uc.jobs.Get(ctx, id)
}

// Job adapts the use case into the queue handler for TrainJobType messages.
func (uc *TrainingUseCase) Job() queue.Job {
	return queue.JobFunc{JobName: "train-model", JobType: TrainJobType, Fn: uc.handle}
}

func (uc *TrainingUseCase) handle(ctx context.Context, msg queue.Message) error {
	job, err := queue.Decode[models.TrainJob](msg)
	if err != nil {
		uc.metrics.RecordError("job_decode")
		return fmt.Errorf("decode training job: %w", err)
	}
	if job.ID == "" {
		job.ID = msg.ID
	}

	job.Status = models.JobRunning
	job.Error = ""
	job.UpdatedAt = uc.now().UTC()
	if err := uc.jobs.Put(ctx, job); err != nil {
		uc.l.Warn("job state not stored", applogger.String("job_id", job.ID), applogger.Error(err))
	}

	resp, err := uc.Train(ctx, job.Request)
	job.UpdatedAt = uc.now().UTC()
	if err != nil {
		job.Status = models.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = models.JobSucceeded
		job.Result = &resp
	}
	if perr := uc.jobs.Put(ctx, job); perr != nil {
		uc.l.Warn("job state not stored", applogger.String("job_id", job.ID), applogger.Error(perr))
	}
	if err != nil && retryable(err) {
		return err
	}
	return nil
}

// retryable reports whether a failed training may succeed on a later attempt.
func retryable(err error) bool {
	return errors.Is(err, models.ErrEngineUnavailable) || errors.Is(err, models.ErrSourceUnavailable)
}
