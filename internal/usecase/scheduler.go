package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"PriceCast/internal/domain/models"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
	"PriceCast/pkg/validation"
)

// TrainingRunner is the part of TrainingUseCase the scheduler drives.
type TrainingRunner interface {
	Submit(ctx context.Context, req models.TrainRequest) (models.TrainJob, error)
	Train(ctx context.Context, req models.TrainRequest) (models.TrainResponse, error)
}

// RetrainScheduler retrains every watchlist ticker on a cron schedule.
type RetrainScheduler struct {
	cron     *cron.Cron
	schedule string
	training TrainingRunner
	tickers  []string
	timeout  time.Duration
	l        *applogger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRetrainScheduler parses a standard five-field cron expression and
// registers the retrain pass. Nothing runs until Start.
func NewRetrainScheduler(schedule string, tickers []string, training TrainingRunner, timeout time.Duration, l *applogger.Logger) (*RetrainScheduler, error) {
	if l == nil {
		l = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &RetrainScheduler{
		cron:     cron.New(),
		schedule: schedule,
		training: training,
		tickers:  util.UniqueStrings(tickers),
		timeout:  timeout,
		l:        l,
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		cancel()
		return nil, fmt.Errorf("register retrain task %q: %w", schedule, err)
	}
	return s, nil
}

func (s *RetrainScheduler) Start() {
	s.cron.Start()
	s.l.Info("retrain scheduler started",
		applogger.String("cron", s.schedule),
		applogger.Strings("tickers", s.tickers),
	)
}

// Stop halts the schedule and waits for a running pass to return.
func (s *RetrainScheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("retrain scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow submits one training per ticker. A ticker whose job cannot be
// queued is trained inline.
func (s *RetrainScheduler) RunNow() {
	s.l.Info("running scheduled retrain", applogger.Int("tickers", len(s.tickers)))
	queued, inline, failed := 0, 0, 0
	for _, ticker := range s.tickers {
		if s.ctx.Err() != nil {
			return
		}
		req, err := s.request(ticker)
		if err != nil {
			failed++
			s.l.Error("scheduled retrain request invalid", applogger.String("ticker", ticker), applogger.Error(err))
			continue
		}

		job, err := s.training.Submit(s.ctx, req)
		if err == nil {
			queued++
			s.l.Debug("scheduled retrain queued", applogger.String("ticker", ticker), applogger.String("job_id", job.ID))
			continue
		}
		s.l.Warn("queue unavailable, training inline", applogger.String("ticker", ticker), applogger.Error(err))

		ctx, cancel := s.trainContext()
		_, err = s.training.Train(ctx, req)
		cancel()
		if err != nil {
			failed++
			continue
		}
		inline++
	}
	s.l.Info("scheduled retrain finished",
		applogger.Int("queued", queued),
		applogger.Int("inline", inline),
		applogger.Int("failed", failed),
	)
}

func (s *RetrainScheduler) trainContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(s.ctx, s.timeout)
	}
	return context.WithCancel(s.ctx)
}

func (s *RetrainScheduler) request(ticker string) (models.TrainRequest, error) {
	req := models.TrainRequest{Ticker: ticker}
	if err := validation.ApplyDefaults(&req); err != nil {
		return req, err
	}
	if err := validation.Struct(s.ctx, req); err != nil {
		return req, err
	}
	return req, nil
}
