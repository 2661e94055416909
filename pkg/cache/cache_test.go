package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type series struct {
	Ticker string    `json:"ticker"`
	Closes []float64 `json:"closes"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := series{Ticker: "TCS", Closes: []float64{1, 2.5}}
	if err := mc.Set(ctx, "k", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out series
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Ticker != "TCS" || len(out.Closes) != 2 || out.Closes[1] != 2.5 {
		t.Fatalf("unexpected value %+v", out)
	}

	var missing series
	if err := mc.Get(ctx, "nope", &missing); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v (%q)", err, s)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)
	var n int
	_ = mc.Get(ctx, "a", &n)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", mc.Len())
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatalf("expected first lock to succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); ok {
		t.Fatalf("expected second lock to fail")
	}
	_ = mc.Unlock(ctx, "lock")
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("expected lock after unlock to succeed")
	}
}

func TestGetOrLoad(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (series, error) {
		calls++
		return series{Ticker: "INFY", Closes: []float64{10}}, nil
	}

	v, hit, err := GetOrLoad(ctx, mc, "s", time.Minute, load)
	if err != nil || hit || v.Ticker != "INFY" {
		t.Fatalf("first load: %+v hit=%v err=%v", v, hit, err)
	}
	v, hit, err = GetOrLoad(ctx, mc, "s", time.Minute, load)
	if err != nil || !hit || v.Closes[0] != 10 {
		t.Fatalf("second load: %+v hit=%v err=%v", v, hit, err)
	}
	if calls != 1 {
		t.Fatalf("expected loader once, got %d", calls)
	}

	boom := errors.New("boom")
	_, _, err = GetOrLoad(ctx, mc, "other", time.Minute, func(context.Context) (series, error) {
		return series{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "other"); ok {
		t.Fatalf("failed load must not be cached")
	}
}

func TestLayeredCacheBackfillsMemory(t *testing.T) {
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()
	ctx := context.Background()

	_ = l2.Set(ctx, "k", series{Ticker: "HDFC"}, time.Minute)

	var out series
	if err := lc.Get(ctx, "k", &out); err != nil || out.Ticker != "HDFC" {
		t.Fatalf("layered get: %+v %v", out, err)
	}
	if ok, _ := lc.memCache.Exists(ctx, "k"); !ok {
		t.Fatalf("expected L1 backfill")
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	if got := GenerateKeyWithParams("history", "TCS", "5y", ""); got != "history:TCS:5y:" {
		t.Fatalf("unexpected key %q", got)
	}
}
