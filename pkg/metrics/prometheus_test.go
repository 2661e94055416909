package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordTraining("yfinance", true)
	r.RecordTraining("yfinance", true)
	r.RecordTraining("local", false)
	r.RecordLastClose("TCS", 3500.5)
	r.RecordEngineLatency("train", 2*time.Second)

	if got := testutil.ToFloat64(r.trainings.WithLabelValues("yfinance", "ok")); got != 2 {
		t.Fatalf("expected 2 ok trainings, got %v", got)
	}
	if got := testutil.ToFloat64(r.trainings.WithLabelValues("local", "error")); got != 1 {
		t.Fatalf("expected 1 failed training, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastClose.WithLabelValues("TCS")); got != 3500.5 {
		t.Fatalf("unexpected last close %v", got)
	}
	if n := testutil.CollectAndCount(r.engineLatency); n != 1 {
		t.Fatalf("expected 1 engine latency series, got %d", n)
	}
}
