package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/repository"
	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/queue"
)

type fakeMarket struct {
	series  models.PriceSeries
	err     error
	symbols []string

	mu      sync.Mutex
	queries []models.SeriesQuery
	sources []models.DataSource
}

func (f *fakeMarket) History(_ context.Context, source models.DataSource, q models.SeriesQuery) (models.PriceSeries, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.sources = append(f.sources, source)
	f.mu.Unlock()
	if f.err != nil {
		return models.PriceSeries{}, f.err
	}
	s := f.series
	if q.Limit > 0 && q.Limit < len(s.Points) {
		s.Points = s.Points[len(s.Points)-q.Limit:]
	}
	return s, nil
}

func (f *fakeMarket) Symbols(_ context.Context, source models.DataSource, _ string) (models.DataSource, []string, error) {
	if source == models.SourceAuto {
		source = models.SourceLocal
	}
	return source, f.symbols, f.err
}

func (f *fakeMarket) lastQuery() models.SeriesQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type fakeTrainer struct {
	result models.EngineTrainResult
	err    error
	got    models.EngineTrainRequest
}

func (f *fakeTrainer) Train(_ context.Context, req models.EngineTrainRequest) (models.EngineTrainResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeForecaster struct {
	pred models.EnginePrediction
	err  error
	got  models.EnginePredictRequest
}

func (f *fakeForecaster) Predict(_ context.Context, req models.EnginePredictRequest) (models.EnginePrediction, error) {
	f.got = req
	return f.pred, f.err
}

type fakeRegistry struct {
	mu   sync.Mutex
	runs []models.ModelRun
	err  error
}

func (f *fakeRegistry) Save(_ context.Context, run *models.ModelRun) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = uint(len(f.runs) + 1)
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRegistry) List(_ context.Context, ticker string, limit int) ([]models.ModelRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ModelRun
	for i := len(f.runs) - 1; i >= 0; i-- {
		if ticker == "" || f.runs[i].Ticker == ticker {
			out = append(out, f.runs[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRegistry) Close() error { return nil }

type fakeEvents struct {
	mu     sync.Mutex
	events []models.ModelTrainedEvent
}

func (f *fakeEvents) PublishModelTrained(_ context.Context, ev models.ModelTrainedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

func closes(n int) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]models.PricePoint, n)
	for i := range pts {
		pts[i] = models.PricePoint{Date: start.AddDate(0, 0, i).Format("2006-01-02"), Value: 100 + float64(i)}
	}
	return models.PriceSeries{Ticker: "TCS", Source: models.SourceLocal, Points: pts}
}

func trainRequest() models.TrainRequest {
	return models.TrainRequest{
		Ticker:       "TCS",
		Period:       "5y",
		InputLen:     60,
		PredLen:      5,
		Epochs:       30,
		BatchSize:    32,
		LearningRate: 0.001,
		DataSource:   models.SourceAuto,
	}
}

func engineResult() models.EngineTrainResult {
	return models.EngineTrainResult{
		Transform:         "log_return",
		ArtifactPath:      "artifacts/TCS.pt",
		TrainLoss:         0.1,
		ValLoss:           0.2,
		ValRMSE:           4.2,
		DirectionAccuracy: 0.6,
		InputLen:          60,
		PredLen:           5,
		TrainSamples:      100,
		ValSamples:        20,
	}
}

type trainingFixture struct {
	uc       *TrainingUseCase
	market   *fakeMarket
	trainer  *fakeTrainer
	registry *fakeRegistry
	events   *fakeEvents
	jobs     *repository.CacheJobStore
}

func newTrainingFixture(t *testing.T, n int, q queue.Queue) *trainingFixture {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	f := &trainingFixture{
		market:   &fakeMarket{series: closes(n)},
		trainer:  &fakeTrainer{result: engineResult()},
		registry: &fakeRegistry{},
		events:   &fakeEvents{},
		jobs:     repository.NewCacheJobStore(mc, time.Hour),
	}
	f.uc = NewTrainingUseCase(f.market, f.trainer, f.registry, f.events, f.jobs, q, nil, nil)
	f.uc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func TestTrainStampsAndRecords(t *testing.T) {
	f := newTrainingFixture(t, 65, nil)

	resp, err := f.uc.Train(context.Background(), trainRequest())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if resp.Ticker != "TCS" || resp.Source != models.SourceLocal || resp.TrainedAtUTC != "2024-06-01T10:00:00Z" {
		t.Fatalf("response not stamped: %+v", resp)
	}
	if len(f.trainer.got.Series) != 65 || f.trainer.got.Source != models.SourceLocal || f.trainer.got.InputLen != 60 {
		t.Fatalf("unexpected engine request %+v", f.trainer.got)
	}
	if q := f.market.lastQuery(); q.Period != "5y" || q.Limit != 0 {
		t.Fatalf("unexpected query %+v", q)
	}
	if len(f.registry.runs) != 1 || f.registry.runs[0].Period != "5y" || f.registry.runs[0].ValRMSE != 4.2 {
		t.Fatalf("run not recorded: %+v", f.registry.runs)
	}
	if len(f.events.events) != 1 || f.events.events[0].Event != models.EventModelTrained {
		t.Fatalf("event not published: %+v", f.events.events)
	}
}

func TestTrainKeepsEngineStamps(t *testing.T) {
	f := newTrainingFixture(t, 65, nil)
	f.trainer.result.Ticker = "TCS.NS"
	f.trainer.result.TrainedAtUTC = "2024-05-31T00:00:00Z"

	resp, err := f.uc.Train(context.Background(), trainRequest())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if resp.Ticker != "TCS.NS" || resp.TrainedAtUTC != "2024-05-31T00:00:00Z" {
		t.Fatalf("engine values overwritten: %+v", resp)
	}
}

func TestTrainInsufficientHistory(t *testing.T) {
	f := newTrainingFixture(t, 64, nil)

	_, err := f.uc.Train(context.Background(), trainRequest())
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if f.trainer.got.Ticker != "" {
		t.Fatalf("engine must not be called")
	}
	if len(f.registry.runs) != 0 {
		t.Fatalf("nothing should be recorded")
	}
}

func TestTrainPropagatesEngineErrors(t *testing.T) {
	f := newTrainingFixture(t, 65, nil)
	f.trainer.err = fmt.Errorf("dial: %w", models.ErrEngineUnavailable)

	if _, err := f.uc.Train(context.Background(), trainRequest()); !errors.Is(err, models.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestTrainRejectsIncompleteEngineReply(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.EngineTrainResult)
	}{
		{"unknown source", func(r *models.EngineTrainResult) { r.Source = "bogus" }},
		{"empty reply", func(r *models.EngineTrainResult) { *r = models.EngineTrainResult{} }},
		{"no artifact", func(r *models.EngineTrainResult) { r.ArtifactPath = "" }},
		{"no transform", func(r *models.EngineTrainResult) { r.Transform = "" }},
		{"accuracy above one", func(r *models.EngineTrainResult) { r.DirectionAccuracy = 1.5 }},
		{"negative rmse", func(r *models.EngineTrainResult) { r.ValRMSE = -1 }},
		{"no samples", func(r *models.EngineTrainResult) { r.TrainSamples = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTrainingFixture(t, 65, nil)
			tt.mutate(&f.trainer.result)

			if _, err := f.uc.Train(context.Background(), trainRequest()); !errors.Is(err, models.ErrInvalidEngineReply) {
				t.Fatalf("expected ErrInvalidEngineReply, got %v", err)
			}
			if len(f.registry.runs) != 0 || len(f.events.events) != 0 {
				t.Fatalf("invalid reply must not be recorded")
			}
		})
	}
}

func TestTrainRegistryFailureStillReturnsModel(t *testing.T) {
	f := newTrainingFixture(t, 65, nil)
	f.registry.err = errors.New("disk full")

	if _, err := f.uc.Train(context.Background(), trainRequest()); err != nil {
		t.Fatalf("registry failure must not fail training: %v", err)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("event still expected")
	}
}

func waitForJob(t *testing.T, uc *TrainingUseCase, id string) models.TrainJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := uc.JobStatus(context.Background(), id)
		if err == nil && job.Status.Done() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return models.TrainJob{}
}

func TestSubmitRunsThroughQueue(t *testing.T) {
	q := queue.NewMemoryQueue(nil, &queue.QueueConfig{Workers: 1, RetryLimit: 0})
	f := newTrainingFixture(t, 65, q)
	q.RegisterJob(f.uc.Job())
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	job, err := f.uc.Submit(context.Background(), trainRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.ID == "" || job.Status != models.JobQueued {
		t.Fatalf("unexpected job %+v", job)
	}

	done := waitForJob(t, f.uc, job.ID)
	if done.Status != models.JobSucceeded || done.Result == nil || done.Result.ValRMSE != 4.2 {
		t.Fatalf("unexpected finished job %+v", done)
	}
}

func TestSubmitRecordsFailure(t *testing.T) {
	q := queue.NewMemoryQueue(nil, &queue.QueueConfig{Workers: 1, RetryLimit: 0})
	f := newTrainingFixture(t, 10, q)
	q.RegisterJob(f.uc.Job())
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	job, err := f.uc.Submit(context.Background(), trainRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitForJob(t, f.uc, job.ID)
	if done.Status != models.JobFailed || done.Error == "" {
		t.Fatalf("expected failed job, got %+v", done)
	}
}

type failingQueue struct{ err error }

func (q failingQueue) RegisterJob(queue.Job) {}
func (q failingQueue) Enqueue(context.Context, queue.Message) error { return q.err }
func (q failingQueue) Start() error { return nil }
func (q failingQueue) Stop(context.Context) error { return nil }

// recordingJobStore fails every Put after the first failAfter calls.
type recordingJobStore struct {
	mu        sync.Mutex
	puts      []models.TrainJob
	failAfter int
}

func (s *recordingJobStore) Put(_ context.Context, job models.TrainJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, job)
	if s.failAfter > 0 && len(s.puts) > s.failAfter {
		return errors.New("store down")
	}
	return nil
}

func (s *recordingJobStore) Get(context.Context, string) (models.TrainJob, error) {
	return models.TrainJob{}, models.ErrJobNotFound
}

func TestSubmitEnqueueFailureMarksJobFailed(t *testing.T) {
	jobs := &recordingJobStore{}
	uc := NewTrainingUseCase(&fakeMarket{series: closes(65)}, &fakeTrainer{}, &fakeRegistry{}, &fakeEvents{},
		jobs, failingQueue{err: queue.ErrQueueFull}, nil, nil)

	if _, err := uc.Submit(context.Background(), trainRequest()); !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if len(jobs.puts) != 2 || jobs.puts[1].Status != models.JobFailed || jobs.puts[1].Error == "" {
		t.Fatalf("expected queued then failed state, got %+v", jobs.puts)
	}
}

func TestSubmitEnqueueFailureLogsLostJobState(t *testing.T) {
	var buf bytes.Buffer
	jobs := &recordingJobStore{failAfter: 1}
	uc := NewTrainingUseCase(&fakeMarket{series: closes(65)}, &fakeTrainer{}, &fakeRegistry{}, &fakeEvents{},
		jobs, failingQueue{err: queue.ErrQueueFull}, nil, applogger.NewWriter(&buf, zerolog.DebugLevel))

	if _, err := uc.Submit(context.Background(), trainRequest()); !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("enqueue error must win over the store error, got %v", err)
	}
	if !strings.Contains(buf.String(), "job state not stored") || !strings.Contains(buf.String(), "store down") {
		t.Fatalf("lost job state not logged: %s", buf.String())
	}
}

func TestSubmitWithoutQueue(t *testing.T) {
	f := newTrainingFixture(t, 65, nil)
	if _, err := f.uc.Submit(context.Background(), trainRequest()); !errors.Is(err, queue.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestJobStatusUnknown(t *testing.T) {
	f := newTrainingFixture(t, 65, nil)
	if _, err := f.uc.JobStatus(context.Background(), "nope"); !errors.Is(err, models.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func predictRequest() models.PredictRequest {
	return models.PredictRequest{Ticker: "^NSEI", Horizon: 3, HistoryPoints: 20, DataSource: models.SourceAuto}
}

func TestPredictAssemblesResponse(t *testing.T) {
	market := &fakeMarket{series: closes(30)}
	fc := &fakeForecaster{pred: models.EnginePrediction{
		Transform:     "log_return",
		ModelArtifact: "artifacts/NSEI.pt",
		InputLen:      60,
		PredLen:       5,
		Forecast: []models.PricePoint{
			{Date: "2024-01-31", Value: 130}, {Date: "2024-02-01", Value: 131}, {Date: "2024-02-02", Value: 132},
		},
	}}
	uc := NewForecastUseCase(market, fc, "2y", nil, nil)

	resp, err := uc.Predict(context.Background(), predictRequest())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if q := market.lastQuery(); q.Period != "2y" {
		t.Fatalf("expected lookback period, got %+v", q)
	}
	if len(fc.got.Series) != 30 || fc.got.Horizon != 3 {
		t.Fatalf("unexpected engine request %+v", fc.got)
	}
	if len(resp.History) != 20 || resp.History[0].Value != 110 || resp.LastClose != 129 {
		t.Fatalf("unexpected history: last_close=%v first=%+v len=%d", resp.LastClose, resp.History[0], len(resp.History))
	}
	if resp.Source != models.SourceLocal || resp.Horizon != 3 || len(resp.Forecast) != 3 || resp.ModelArtifact != "artifacts/NSEI.pt" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPredictShortForecastIsNotAnError(t *testing.T) {
	fc := &fakeForecaster{pred: models.EnginePrediction{
		Transform: "log_return", ModelArtifact: "artifacts/NSEI.pt", InputLen: 60, PredLen: 5,
		Forecast: []models.PricePoint{{Date: "2024-02-01", Value: 1}},
	}}
	uc := NewForecastUseCase(&fakeMarket{series: closes(30)}, fc, "2y", nil, nil)

	resp, err := uc.Predict(context.Background(), predictRequest())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(resp.Forecast) != 1 || resp.Horizon != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPredictRejectsIncompleteEngineReply(t *testing.T) {
	tests := map[string]models.EnginePrediction{
		"empty reply":   {},
		"no artifact":   {Transform: "log_return", InputLen: 60, PredLen: 5},
		"zero pred len": {Transform: "log_return", ModelArtifact: "m.pt", InputLen: 60},
	}
	for name, pred := range tests {
		t.Run(name, func(t *testing.T) {
			uc := NewForecastUseCase(&fakeMarket{series: closes(30)}, &fakeForecaster{pred: pred}, "2y", nil, nil)
			if _, err := uc.Predict(context.Background(), predictRequest()); !errors.Is(err, models.ErrInvalidEngineReply) {
				t.Fatalf("expected ErrInvalidEngineReply, got %v", err)
			}
		})
	}
}

func TestPredictInsufficientHistory(t *testing.T) {
	fc := &fakeForecaster{}
	uc := NewForecastUseCase(&fakeMarket{series: closes(19)}, fc, "2y", nil, nil)

	if _, err := uc.Predict(context.Background(), predictRequest()); !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if fc.got.Ticker != "" {
		t.Fatalf("engine must not be called")
	}
}

func TestPredictSourceErrors(t *testing.T) {
	market := &fakeMarket{err: models.ErrTickerNotFound}
	uc := NewForecastUseCase(market, &fakeForecaster{}, "2y", nil, nil)

	if _, err := uc.Predict(context.Background(), predictRequest()); !errors.Is(err, models.ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound, got %v", err)
	}
}

func TestMarketDataHistoryAndSymbols(t *testing.T) {
	market := &fakeMarket{series: closes(30), symbols: []string{"TCS", "INFY"}}
	uc := NewMarketDataUseCase(market)

	hist, err := uc.History(context.Background(), models.HistoryRequest{Ticker: "TCS", Period: "5y", Limit: 5, DataSource: models.SourceLocal})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if hist.Ticker != "TCS" || hist.Source != models.SourceLocal || len(hist.History) != 5 {
		t.Fatalf("unexpected history %+v", hist)
	}

	syms, err := uc.Symbols(context.Background(), models.SymbolsRequest{DataSource: models.SourceAuto})
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if syms.Source != models.SourceLocal || len(syms.Symbols) != 2 || syms.Symbols[0] != "TCS" {
		t.Fatalf("unexpected symbols %+v", syms)
	}
}

func TestModelRunsList(t *testing.T) {
	reg := &fakeRegistry{}
	uc := NewModelRunsUseCase(reg)

	runs, err := uc.List(context.Background(), models.ModelRunsRequest{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", runs)
	}

	run := models.ModelRun{TrainResponse: models.TrainResponse{Ticker: "TCS"}}
	_ = reg.Save(context.Background(), &run)
	runs, _ = uc.List(context.Background(), models.ModelRunsRequest{Ticker: "TCS", Limit: 10})
	if len(runs) != 1 || runs[0].ID != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

type fakeRunner struct {
	mu        sync.Mutex
	submitErr error
	submitted []string
	trained   []string
}

func (f *fakeRunner) Submit(_ context.Context, req models.TrainRequest) (models.TrainJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return models.TrainJob{}, f.submitErr
	}
	f.submitted = append(f.submitted, req.Ticker)
	return models.TrainJob{ID: "job-" + req.Ticker, Status: models.JobQueued}, nil
}

func (f *fakeRunner) Train(_ context.Context, req models.TrainRequest) (models.TrainResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trained = append(f.trained, req.Ticker)
	return models.TrainResponse{Ticker: req.Ticker}, nil
}

func TestRetrainSchedulerQueuesWatchlist(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewRetrainScheduler("0 18 * * 1-5", []string{"TCS", "INFY", "TCS"}, runner, time.Minute, nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	s.RunNow()
	if len(runner.submitted) != 2 || runner.submitted[0] != "TCS" || runner.submitted[1] != "INFY" {
		t.Fatalf("unexpected submissions %v", runner.submitted)
	}
	if len(runner.trained) != 0 {
		t.Fatalf("nothing should run inline: %v", runner.trained)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestRetrainSchedulerFallsBackInline(t *testing.T) {
	runner := &fakeRunner{submitErr: queue.ErrNotRunning}
	s, err := NewRetrainScheduler("@daily", []string{"TCS"}, runner, 0, nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	s.RunNow()
	if len(runner.trained) != 1 || runner.trained[0] != "TCS" {
		t.Fatalf("expected inline training, got %v", runner.trained)
	}
}

func TestRetrainSchedulerRejectsBadCron(t *testing.T) {
	if _, err := NewRetrainScheduler("not a cron", nil, &fakeRunner{}, 0, nil); err == nil {
		t.Fatalf("expected cron parse error")
	}
}
