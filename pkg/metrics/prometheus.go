package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainings     *prometheus.CounterVec
	predictions   *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastClose     *prometheus.GaugeVec
	valRMSE       *prometheus.GaugeVec
	engineLatency *prometheus.HistogramVec
	latency       *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		trainings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_trainings_total",
				Help: "Total number of training runs by outcome",
			},
			[]string{"source", "result"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_predictions_total",
				Help: "Total number of forecasts by outcome",
			},
			[]string{"source", "result"},
		),
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_provider_fetches_total",
				Help: "Total number of market data fetches by provider and outcome",
			},
			[]string{"source", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricecast_last_close",
				Help: "Last observed close for a ticker",
			},
			[]string{"ticker"},
		),
		valRMSE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricecast_validation_rmse",
				Help: "Validation RMSE of the latest model for a ticker",
			},
			[]string{"ticker"},
		),
		engineLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_engine_request_seconds",
				Help:    "Latency of ML engine calls",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordTraining counts a training run.
func (r *Recorder) RecordTraining(source string, ok bool) {
	r.trainings.WithLabelValues(source, result(ok)).Inc()
}

// RecordPrediction counts a forecast.
func (r *Recorder) RecordPrediction(source string, ok bool) {
	r.predictions.WithLabelValues(source, result(ok)).Inc()
}

// RecordFetch counts a provider fetch.
func (r *Recorder) RecordFetch(source string, ok bool) {
	r.fetches.WithLabelValues(source, result(ok)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the last close for a ticker.
func (r *Recorder) RecordLastClose(ticker string, price float64) {
	r.lastClose.WithLabelValues(ticker).Set(price)
}

// RecordValRMSE records the validation RMSE of the newest model.
func (r *Recorder) RecordValRMSE(ticker string, rmse float64) {
	r.valRMSE.WithLabelValues(ticker).Set(rmse)
}

// RecordEngineLatency records an engine call duration.
func (r *Recorder) RecordEngineLatency(op string, d time.Duration) {
	r.engineLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}
