package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	pkgch "PriceCast/pkg/clickhouse"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

const pricesTable = "prices_daily"

var priceArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + pricesTable + ` (
        ticker     LowCardinality(String),
        date       Date,
        close      Float64,
        source     LowCardinality(String),
        updated_at DateTime
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (ticker, date)`,
}

// CHPriceArchive stores daily closes in ClickHouse, one row per (ticker, date).
type CHPriceArchive struct {
	db  *sql.DB
	ch  *pkgch.Client
	l   *applogger.Logger
	now func() time.Time
}

func NewCHPriceArchive(ch *pkgch.Client) *CHPriceArchive {
	return &CHPriceArchive{db: ch.DB(), ch: ch, now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHPriceArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceArchive) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, priceArchiveSchema); err != nil {
		s.logError("clickhouse archive schema error", "", err)
		return err
	}
	return nil
}

func (s *CHPriceArchive) Save(ctx context.Context, series models.PriceSeries) error {
	if series.Len() == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+pricesTable+` (ticker, date, close, source, updated_at)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare archive batch: %w", err)
	}
	defer stmt.Close()

	updated := s.now().UTC().Truncate(time.Second)
	rows := 0
	for _, p := range series.Points {
		day, ok := util.ParseTime(p.Date)
		if !ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx, series.Ticker, day, p.Value, string(series.Source), updated); err != nil {
			_ = tx.Rollback()
			s.logError("clickhouse archive insert error", series.Ticker, err)
			return fmt.Errorf("archive insert: %w", err)
		}
		rows++
	}
	if err := tx.Commit(); err != nil {
		s.logError("clickhouse archive commit error", series.Ticker, err)
		return fmt.Errorf("archive commit: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse archive saved",
			applogger.String("ticker", series.Ticker),
			applogger.Int("rows", rows),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return nil
}

func (s *CHPriceArchive) Load(ctx context.Context, ticker string, since time.Time, limit int) (models.PriceSeries, error) {
	start := time.Now()
	const q = `
        SELECT date, close, source
        FROM ` + pricesTable + ` FINAL
        WHERE ticker = ? AND date >= ?
        ORDER BY date ASC
    `
	out := models.PriceSeries{Ticker: ticker}
	rows, err := s.db.QueryContext(ctx, q, ticker, since)
	if err != nil {
		s.logError("clickhouse archive query error", ticker, err)
		return out, fmt.Errorf("archive query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day    time.Time
			value  float64
			source string
		)
		if err := rows.Scan(&day, &value, &source); err != nil {
			s.logError("clickhouse archive scan error", ticker, err)
			return out, fmt.Errorf("scan archived close: %w", err)
		}
		out.Source = models.DataSource(source)
		out.Points = append(out.Points, models.PricePoint{Date: util.FormatDate(day), Value: value})
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse archive rows error", ticker, err)
		return out, fmt.Errorf("rows: %w", err)
	}
	if limit > 0 && len(out.Points) > limit {
		out.Points = out.Points[len(out.Points)-limit:]
	}
	if s.l != nil {
		s.l.Debug("clickhouse archive loaded",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(out.Points)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return out, nil
}

// Close is a no-op; the client is owned by the app.
func (s *CHPriceArchive) Close() error { return nil }

func (s *CHPriceArchive) logError(msg, ticker string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", pricesTable),
		applogger.String("ticker", ticker),
		applogger.Error(err),
	)
}
