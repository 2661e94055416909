package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"PriceCast/pkg/logger"
)

type trainPayload struct {
	Ticker string `json:"ticker"`
}

func TestMemoryQueueRunsJob(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), &QueueConfig{Workers: 2})
	got := make(chan string, 1)
	q.RegisterJob(JobFunc{JobName: "train", JobType: "train", Fn: func(ctx context.Context, msg Message) error {
		p, err := Decode[trainPayload](msg)
		if err != nil {
			return err
		}
		got <- p.Ticker
		return nil
	}})
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop(context.Background())

	msg, err := NewMessage("train", trainPayload{Ticker: "TCS"})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("expected message id")
	}
	if err := q.Enqueue(context.Background(), msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case ticker := <-got:
		if ticker != "TCS" {
			t.Fatalf("unexpected payload %q", ticker)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestMemoryQueueRetries(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), &QueueConfig{Workers: 1, RetryLimit: 2, RetryDelay: time.Millisecond})
	var calls int32
	done := make(chan struct{})
	q.RegisterJob(JobFunc{JobName: "flaky", JobType: "flaky", Fn: func(ctx context.Context, msg Message) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("try again")
		}
		close(done)
		return nil
	}})
	_ = q.Start()
	defer q.Stop(context.Background())

	msg, _ := NewMessage("flaky", nil)
	if err := q.Enqueue(context.Background(), msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected third attempt, got %d calls", atomic.LoadInt32(&calls))
	}
}

func TestMemoryQueueRejects(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), nil)
	msg, _ := NewMessage("train", nil)
	if err := q.Enqueue(context.Background(), msg); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	_ = q.Start()
	defer q.Stop(context.Background())
	if err := q.Enqueue(context.Background(), msg); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}
