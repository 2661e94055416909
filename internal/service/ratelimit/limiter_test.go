package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestAllowDrainsAndRefills(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected full bucket to allow two requests")
	}
	if l.Allow("a") {
		t.Fatalf("expected empty bucket to reject")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(30 * time.Second)
	if l.Allow("a") {
		t.Fatalf("half a token is not enough")
	}
	now = now.Add(31 * time.Second)
	if !l.Allow("a") {
		t.Fatalf("expected one token after a minute")
	}
}

func TestAllowCapsAtCapacity(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1, time.Second)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(time.Hour)
	if !l.Allow("a") || l.Allow("a") {
		t.Fatalf("bucket must not grow beyond capacity")
	}
}

func TestIdleBucketsAreEvicted(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1, time.Minute)
	l.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		l.Allow(ip)
	}
	now = now.Add(time.Minute)
	l.Allow("busy")
	l.Allow("busy")
	if got := l.Len(); got != 4 {
		t.Fatalf("expected 4 buckets, got %d", got)
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("busy") {
		t.Fatalf("expected one refilled token")
	}
	if got := l.Len(); got != 1 {
		t.Fatalf("expected only the busy bucket to survive, got %d", got)
	}
	if l.Allow("busy") {
		t.Fatalf("eviction must not refill a drained bucket")
	}
}

func TestEvictionKeepsDrainedBuckets(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New(3, 1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("warm")
	now = now.Add(2 * time.Minute)
	l.Allow("a")
	l.Allow("a")
	l.Allow("a")
	now = now.Add(time.Minute)
	l.Allow("b")
	if got := l.Len(); got != 2 {
		t.Fatalf("expected a and b to remain, got %d buckets", got)
	}
}

func TestMiddlewareReturns429(t *testing.T) {
	e := echo.New()
	l := New(1, 1, time.Hour)
	e.POST("/api/train", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware(nil))

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: got %d", first.Code)
	}

	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d", second.Code)
	}
}
