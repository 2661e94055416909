package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Every key starts full with capacity
// tokens and regains refill tokens per interval. Buckets that have refilled
// are dropped, since a fresh bucket is identical.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*bucket
	capacity  float64
	perSec    float64
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func New(capacity, refill int64, interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = time.Second
	}
	l := &Limiter{
		m:        make(map[string]*bucket),
		capacity: float64(capacity),
		perSec:   float64(refill) / interval.Seconds(),
		now:      time.Now,
	}
	l.idle = time.Minute
	if l.perSec > 0 {
		l.idle = time.Duration(l.capacity / l.perSec * float64(time.Second))
	}
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.perSec
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// sweep drops buckets idle long enough to be full again. It runs at most
// once per idle period. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for key, b := range l.m {
		idle := now.Sub(b.last)
		if b.tokens+idle.Seconds()*l.perSec >= l.capacity {
			delete(l.m, key)
		}
	}
}

// Len reports how many buckets are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Middleware rejects a client with 429 once its bucket for the route is empty.
// Clients are told apart by echo's RealIP.
func (l *Limiter) Middleware(lg *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + ":" + c.Path()
			if !l.Allow(key) {
				if lg != nil {
					lg.Warn("rate limited",
						applogger.String("remote", c.RealIP()),
						applogger.String("path", c.Path()),
					)
				}
				return xhttp.TooManyRequestsResponse(c, []*xhttp.AppError{
					xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests, slow down", http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
