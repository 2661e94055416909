package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// LocalProvider reads daily closes from <dir>/<TICKER>.csv files.
type LocalProvider struct {
	defaultDir string
	logger     *logger.Logger
	now        func() time.Time
}

func NewLocalProvider(defaultDir string, l *logger.Logger) *LocalProvider {
	if l == nil {
		l = logger.Nop()
	}
	return &LocalProvider{defaultDir: defaultDir, logger: l, now: time.Now}
}

func (p *LocalProvider) Source() models.DataSource { return models.SourceLocal }

// Dir resolves the directory for a request: the override when set, else the default.
func (p *LocalProvider) Dir(override string) string {
	if override != "" {
		return override
	}
	return p.defaultDir
}

// Has reports whether dir holds a CSV for ticker.
func (p *LocalProvider) Has(dir, ticker string) bool {
	path, err := p.file(dir, ticker)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (p *LocalProvider) History(_ context.Context, q models.SeriesQuery) (models.PriceSeries, error) {
	path, err := p.file(p.Dir(q.LocalDataDir), q.Ticker)
	if err != nil {
		return models.PriceSeries{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.PriceSeries{}, fmt.Errorf("%w: no local file for %s", models.ErrTickerNotFound, q.Ticker)
		}
		return models.PriceSeries{}, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	defer f.Close()

	rows, err := readCloses(f)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, filepath.Base(path), err)
	}

	points := normalize(rows, q.Period, p.now())
	if len(points) == 0 {
		return models.PriceSeries{}, fmt.Errorf("%w: %s has no closes in period %q", models.ErrTickerNotFound, q.Ticker, q.Period)
	}

	p.logger.Debug("local history loaded",
		logger.String("ticker", q.Ticker),
		logger.String("file", path),
		logger.Int("points", len(points)))

	return models.PriceSeries{
		Ticker: q.Ticker,
		Source: models.SourceLocal,
		Points: limitTail(points, q.Limit),
	}, nil
}

// Symbols lists CSV basenames in dir, sorted.
func (p *LocalProvider) Symbols(_ context.Context, localDir string) ([]string, error) {
	dir := p.Dir(localDir)
	if dir == "" {
		return nil, fmt.Errorf("%w: no local data directory configured", models.ErrSourceUnavailable)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); strings.EqualFold(ext, ".csv") {
			symbols = append(symbols, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (p *LocalProvider) file(dir, ticker string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: no local data directory configured", models.ErrSourceUnavailable)
	}
	if ticker == "" || ticker != filepath.Base(ticker) || strings.ContainsAny(ticker, `/\`) {
		return "", fmt.Errorf("%w: invalid ticker %q", models.ErrTickerNotFound, ticker)
	}
	path := filepath.Join(dir, ticker+".csv")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	for _, name := range []string{strings.ToUpper(ticker), strings.ToLower(ticker)} {
		if alt := filepath.Join(dir, name+".csv"); alt != path {
			if _, err := os.Stat(alt); err == nil {
				return alt, nil
			}
		}
	}
	return path, nil
}

// readCloses parses a CSV with a header row holding a Date column and a
// Close (or Adj Close) column. Rows with unparseable values are skipped.
func readCloses(r io.Reader) ([]dated, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, closeCol := -1, -1
	adjCol := -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "date", "datetime", "timestamp":
			dateCol = i
		case "close":
			closeCol = i
		case "adj close", "adj_close", "adjclose":
			adjCol = i
		}
	}
	if closeCol < 0 {
		closeCol = adjCol
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("missing Date or Close column in header %v", header)
	}

	var rows []dated
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if dateCol >= len(rec) || closeCol >= len(rec) {
			continue
		}
		at, ok := util.ParseTime(rec[dateCol])
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		rows = append(rows, dated{at: at, point: models.PricePoint{Date: util.FormatDate(at), Value: v}})
	}
	return rows, nil
}
