package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	"PriceCast/pkg/cache"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/util"
)

// LocalSource is a PriceProvider backed by a directory of files.
type LocalSource interface {
	repository.PriceProvider
	Dir(override string) string
	Has(dir, ticker string) bool
}

// Router picks the concrete provider for a request and layers caching and
// the price archive on top of the remote source.
type Router struct {
	local    LocalSource
	remote   repository.PriceProvider
	archive  repository.SeriesArchive
	cache    cache.Service
	cacheTTL time.Duration
	metrics  repository.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

// RouterOption configures Router.
type RouterOption func(*Router)

// WithArchive stores remote fetches and falls back to them on outages.
func WithArchive(a repository.SeriesArchive) RouterOption {
	return func(r *Router) { r.archive = a }
}

// WithCache caches remote fetches for ttl.
func WithCache(c cache.Service, ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(m repository.Metrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithLogger sets the router logger.
func WithLogger(l *logger.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

func NewRouter(local LocalSource, remote repository.PriceProvider, opts ...RouterOption) *Router {
	r := &Router{
		local:   local,
		remote:  remote,
		metrics: metrics.Nop{},
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps auto onto a concrete source: local when the directory has the
// ticker, yfinance otherwise. Concrete sources pass through.
func (r *Router) Resolve(source models.DataSource, ticker, localDir string) models.DataSource {
	if source != models.SourceAuto && source != "" {
		return source
	}
	if dir := r.local.Dir(localDir); dir != "" && r.local.Has(dir, ticker) {
		return models.SourceLocal
	}
	return models.SourceYFinance
}

// History fetches a series from the resolved source. The returned series
// always names the concrete source and the upper-case ticker.
func (r *Router) History(ctx context.Context, source models.DataSource, q models.SeriesQuery) (models.PriceSeries, error) {
	if !source.Valid() && source != "" {
		return models.PriceSeries{}, fmt.Errorf("unknown data source %q", source)
	}
	q.Ticker = util.NormalizeTicker(q.Ticker)
	resolved := r.Resolve(source, q.Ticker, q.LocalDataDir)

	var (
		series models.PriceSeries
		err    error
	)
	switch resolved {
	case models.SourceLocal:
		series, err = r.local.History(ctx, q)
	default:
		series, err = r.remoteHistory(ctx, q)
	}
	r.metrics.RecordFetch(string(resolved), err == nil)
	if err != nil {
		return models.PriceSeries{}, err
	}

	series.Ticker = q.Ticker
	series.Source = resolved
	series.Points = limitTail(series.Points, q.Limit)
	if last, ok := series.LastClose(); ok {
		r.metrics.RecordLastClose(series.Ticker, last)
	}
	return series, nil
}

// Symbols lists tickers for a source. Auto prefers the local directory when
// one is configured and readable.
func (r *Router) Symbols(ctx context.Context, source models.DataSource, localDir string) (models.DataSource, []string, error) {
	switch source {
	case models.SourceLocal:
		symbols, err := r.local.Symbols(ctx, localDir)
		return models.SourceLocal, symbols, err
	case models.SourceYFinance:
		symbols, err := r.remote.Symbols(ctx, localDir)
		return models.SourceYFinance, symbols, err
	}

	if r.local.Dir(localDir) != "" {
		symbols, err := r.local.Symbols(ctx, localDir)
		if err == nil {
			return models.SourceLocal, symbols, nil
		}
		r.logger.Warn("local symbols unavailable, using watchlist", logger.Error(err))
	}
	symbols, err := r.remote.Symbols(ctx, localDir)
	return models.SourceYFinance, symbols, err
}

func (r *Router) remoteHistory(ctx context.Context, q models.SeriesQuery) (models.PriceSeries, error) {
	full := q
	full.Limit = 0
	full.LocalDataDir = ""

	load := func(ctx context.Context) (models.PriceSeries, error) {
		series, err := r.remote.History(ctx, full)
		if err != nil {
			return series, err
		}
		r.archiveSeries(ctx, series)
		return series, nil
	}

	var (
		series models.PriceSeries
		err    error
	)
	if r.cache != nil {
		key := cache.GenerateKeyWithParams("history", models.SourceYFinance, q.Ticker, q.Period)
		series, _, err = cache.GetOrLoad(ctx, r.cache, key, r.cacheTTL, load)
	} else {
		series, err = load(ctx)
	}
	if err == nil {
		return series, nil
	}

	if r.archive == nil || !errors.Is(err, models.ErrSourceUnavailable) {
		return models.PriceSeries{}, err
	}
	return r.archiveFallback(ctx, q, err)
}

func (r *Router) archiveSeries(ctx context.Context, series models.PriceSeries) {
	if r.archive == nil {
		return
	}
	if err := r.archive.Save(ctx, series); err != nil {
		r.logger.Warn("price archive save failed",
			logger.String("ticker", series.Ticker),
			logger.Error(err))
	}
}

func (r *Router) archiveFallback(ctx context.Context, q models.SeriesQuery, cause error) (models.PriceSeries, error) {
	since, ok := util.PeriodStart(q.Period, r.now())
	if !ok {
		since = time.Time{}
	}
	series, err := r.archive.Load(ctx, q.Ticker, since, 0)
	if err != nil || series.Len() == 0 {
		if err != nil {
			r.logger.Warn("price archive load failed", logger.String("ticker", q.Ticker), logger.Error(err))
		}
		return models.PriceSeries{}, cause
	}
	r.logger.Warn("serving archived closes",
		logger.String("ticker", q.Ticker),
		logger.Int("points", series.Len()),
		logger.Error(cause))
	series.Ticker = q.Ticker
	series.Source = models.SourceYFinance
	return series, nil
}
