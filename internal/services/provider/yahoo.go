package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	xhttp "PriceCast/pkg/http"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// YahooConfig configures YahooProvider.
type YahooConfig struct {
	BaseURL   string
	Suffix    string // appended to plain tickers, e.g. ".NS"
	Timeout   time.Duration
	UserAgent string
	Watchlist []string
}

// YahooProvider fetches daily closes from the Yahoo Finance chart API.
type YahooProvider struct {
	cfg    YahooConfig
	client *xhttp.Client
	logger *logger.Logger
	now    func() time.Time
}

func NewYahooProvider(cfg YahooConfig, l *logger.Logger) *YahooProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if l == nil {
		l = logger.Nop()
	}
	return &YahooProvider{
		cfg:    cfg,
		client: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent(cfg.UserAgent)),
		logger: l,
		now:    time.Now,
	}
}

func (p *YahooProvider) Source() models.DataSource { return models.SourceYFinance }

// Symbols returns the configured watchlist.
func (p *YahooProvider) Symbols(context.Context, string) ([]string, error) {
	return util.UniqueStrings(p.cfg.Watchlist), nil
}

// YahooSymbol maps a ticker to the Yahoo symbol: index (^) and already
// suffixed tickers are used verbatim, plain ones get the exchange suffix.
func (p *YahooProvider) YahooSymbol(ticker string) string {
	if p.cfg.Suffix == "" || strings.HasPrefix(ticker, "^") || strings.Contains(ticker, ".") || strings.Contains(ticker, "=") {
		return ticker
	}
	return ticker + p.cfg.Suffix
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) History(ctx context.Context, q models.SeriesQuery) (models.PriceSeries, error) {
	now := p.now()
	symbol := p.YahooSymbol(q.Ticker)
	rng := util.YahooRange(q.Period, now)

	var chart yahooChart
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(symbol)),
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"range":    {rng},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}, &chart)
	if err != nil {
		return models.PriceSeries{}, p.classify(symbol, err)
	}

	if chart.Chart.Error != nil {
		return models.PriceSeries{}, fmt.Errorf("%w: yahoo %s: %s", models.ErrTickerNotFound, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return models.PriceSeries{}, fmt.Errorf("%w: yahoo returned no data for %s", models.ErrTickerNotFound, symbol)
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(closes) == 0 && len(result.Indicators.AdjClose) > 0 {
		closes = result.Indicators.AdjClose[0].AdjClose
	}

	// Dates are taken in exchange local time so a session maps to its own day.
	offset := time.Duration(result.Meta.GMTOffset) * time.Second
	rows := make([]dated, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars (holidays, halts)
		}
		at := time.Unix(ts, 0).UTC().Add(offset)
		rows = append(rows, dated{at: at, point: models.PricePoint{Date: util.FormatDate(at), Value: *closes[i]}})
	}

	points := normalize(rows, q.Period, now)
	if len(points) == 0 {
		return models.PriceSeries{}, fmt.Errorf("%w: yahoo has no closes for %s in period %q", models.ErrTickerNotFound, symbol, q.Period)
	}

	p.logger.Debug("yahoo history fetched",
		logger.String("ticker", q.Ticker),
		logger.String("symbol", symbol),
		logger.String("range", rng),
		logger.Int("points", len(points)))

	return models.PriceSeries{
		Ticker: q.Ticker,
		Source: models.SourceYFinance,
		Points: limitTail(points, q.Limit),
	}, nil
}

func (p *YahooProvider) classify(symbol string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusBadRequest) {
		return fmt.Errorf("%w: yahoo %s: status %d", models.ErrTickerNotFound, symbol, se.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: yahoo %s: %v", models.ErrSourceUnavailable, symbol, err)
}
