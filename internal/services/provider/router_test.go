package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/cache"
)

type fakeRemote struct {
	calls  int
	series models.PriceSeries
	err    error
}

func (f *fakeRemote) Source() models.DataSource { return models.SourceYFinance }

func (f *fakeRemote) History(_ context.Context, q models.SeriesQuery) (models.PriceSeries, error) {
	f.calls++
	if f.err != nil {
		return models.PriceSeries{}, f.err
	}
	s := f.series
	s.Ticker = q.Ticker
	return s, nil
}

func (f *fakeRemote) Symbols(context.Context, string) ([]string, error) {
	return []string{"^NSEI", "TCS"}, nil
}

type fakeArchive struct {
	saved  []models.PriceSeries
	stored models.PriceSeries
}

func (a *fakeArchive) Init(context.Context) error { return nil }

func (a *fakeArchive) Save(_ context.Context, s models.PriceSeries) error {
	a.saved = append(a.saved, s)
	return nil
}

func (a *fakeArchive) Load(_ context.Context, ticker string, _ time.Time, _ int) (models.PriceSeries, error) {
	if a.stored.Ticker != ticker {
		return models.PriceSeries{}, nil
	}
	return a.stored, nil
}

func (a *fakeArchive) Close() error { return nil }

func points(n int) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := range out {
		out[i] = models.PricePoint{Date: fmt.Sprintf("2024-01-%02d", i+1), Value: float64(100 + i)}
	}
	return out
}

func TestRouterResolvesAuto(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TCS.csv", "Date,Close\n2024-06-10,1\n2024-06-11,2\n")

	remote := &fakeRemote{series: models.PriceSeries{Points: points(3)}}
	r := NewRouter(newTestLocal(dir), remote)
	ctx := context.Background()

	s, err := r.History(ctx, models.SourceAuto, models.SeriesQuery{Ticker: "TCS", Period: "1y"})
	if err != nil || s.Source != models.SourceLocal || s.Len() != 2 {
		t.Fatalf("expected local series, got %+v %v", s, err)
	}

	s, err = r.History(ctx, models.SourceAuto, models.SeriesQuery{Ticker: "INFY", Period: "1y"})
	if err != nil || s.Source != models.SourceYFinance || s.Len() != 3 {
		t.Fatalf("expected yfinance series, got %+v %v", s, err)
	}

	s, err = r.History(ctx, models.SourceYFinance, models.SeriesQuery{Ticker: "TCS", Period: "1y", Limit: 1})
	if err != nil || s.Source != models.SourceYFinance || s.Len() != 1 || s.Points[0].Value != 102 {
		t.Fatalf("expected explicit yfinance with limit, got %+v %v", s, err)
	}
}

func TestRouterCachesRemote(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	remote := &fakeRemote{series: models.PriceSeries{Points: points(5)}}
	archive := &fakeArchive{}
	r := NewRouter(newTestLocal(""), remote, WithCache(mc, time.Minute), WithArchive(archive))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := r.History(ctx, models.SourceAuto, models.SeriesQuery{Ticker: "TCS", Period: "5y", Limit: 2})
		if err != nil || s.Len() != 2 {
			t.Fatalf("call %d: %+v %v", i, s, err)
		}
	}
	if remote.calls != 1 {
		t.Fatalf("expected one remote call, got %d", remote.calls)
	}
	if len(archive.saved) != 1 || archive.saved[0].Len() != 5 {
		t.Fatalf("expected full series archived once, got %+v", archive.saved)
	}
}

func TestRouterNormalizesTicker(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	remote := &fakeRemote{series: models.PriceSeries{Points: points(3)}}
	archive := &fakeArchive{}
	r := NewRouter(newTestLocal(""), remote, WithCache(mc, time.Minute), WithArchive(archive))
	ctx := context.Background()

	for _, ticker := range []string{" tcs", "TCS", "Tcs"} {
		s, err := r.History(ctx, models.SourceYFinance, models.SeriesQuery{Ticker: ticker, Period: "5y"})
		if err != nil {
			t.Fatalf("%q: %v", ticker, err)
		}
		if s.Ticker != "TCS" {
			t.Fatalf("%q: series labelled %q", ticker, s.Ticker)
		}
	}
	if remote.calls != 1 {
		t.Fatalf("spellings of one ticker must share a cache entry, got %d remote calls", remote.calls)
	}
	if len(archive.saved) != 1 || archive.saved[0].Ticker != "TCS" {
		t.Fatalf("expected one archived TCS series, got %+v", archive.saved)
	}
}

func TestRouterNormalizedTickerFindsLowerCaseFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "infy.csv", "Date,Close\n2024-06-10,1\n")
	r := NewRouter(newTestLocal(dir), &fakeRemote{})

	s, err := r.History(context.Background(), models.SourceAuto, models.SeriesQuery{Ticker: "infy", Period: "1y"})
	if err != nil || s.Source != models.SourceLocal || s.Ticker != "INFY" || s.Len() != 1 {
		t.Fatalf("expected local INFY series, got %+v %v", s, err)
	}
}

func TestRouterArchiveFallback(t *testing.T) {
	archive := &fakeArchive{stored: models.PriceSeries{Ticker: "TCS", Points: points(4)}}
	remote := &fakeRemote{err: fmt.Errorf("%w: timeout", models.ErrSourceUnavailable)}
	r := NewRouter(newTestLocal(""), remote, WithArchive(archive))
	ctx := context.Background()

	s, err := r.History(ctx, models.SourceYFinance, models.SeriesQuery{Ticker: "TCS", Period: "5y"})
	if err != nil || s.Len() != 4 || s.Source != models.SourceYFinance {
		t.Fatalf("expected archived series, got %+v %v", s, err)
	}

	_, err = r.History(ctx, models.SourceYFinance, models.SeriesQuery{Ticker: "INFY", Period: "5y"})
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("expected original error when archive is empty, got %v", err)
	}

	remote.err = fmt.Errorf("%w: delisted", models.ErrTickerNotFound)
	_, err = r.History(ctx, models.SourceYFinance, models.SeriesQuery{Ticker: "TCS", Period: "5y"})
	if !errors.Is(err, models.ErrTickerNotFound) {
		t.Fatalf("not-found must not fall back to the archive, got %v", err)
	}
}

func TestRouterSymbols(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TCS.csv", "Date,Close\n")
	ctx := context.Background()

	r := NewRouter(newTestLocal(""), &fakeRemote{})
	src, symbols, err := r.Symbols(ctx, models.SourceAuto, "")
	if err != nil || src != models.SourceYFinance || len(symbols) != 2 {
		t.Fatalf("auto without dir: %s %v %v", src, symbols, err)
	}
	src, symbols, err = r.Symbols(ctx, models.SourceAuto, dir)
	if err != nil || src != models.SourceLocal || len(symbols) != 1 || symbols[0] != "TCS" {
		t.Fatalf("auto with dir: %s %v %v", src, symbols, err)
	}
	if _, _, err := r.Symbols(ctx, models.SourceLocal, ""); !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("explicit local without dir should fail, got %v", err)
	}
}
