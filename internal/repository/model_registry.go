package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"PriceCast/internal/domain/models"
	applogger "PriceCast/pkg/logger"
)

type modelRunRow struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`

	Ticker            string `gorm:"index;not null"`
	Source            string `gorm:"not null"`
	Period            string
	Transform         string
	ArtifactPath      string `gorm:"type:text"`
	TrainLoss         float64
	ValLoss           float64
	ValRMSE           float64 `gorm:"column:val_rmse"`
	DirectionAccuracy float64
	InputLen          int
	PredLen           int
	Epochs            int
	BatchSize         int
	LearningRate      float64
	TrainSamples      int
	ValSamples        int
	TrainedAtUTC      string `gorm:"column:trained_at_utc"`
}

func (modelRunRow) TableName() string { return "model_runs" }

func toRow(run *models.ModelRun) modelRunRow {
	return modelRunRow{
		ID:                run.ID,
		CreatedAt:         run.CreatedAt,
		Ticker:            run.Ticker,
		Source:            string(run.Source),
		Period:            run.Period,
		Transform:         run.Transform,
		ArtifactPath:      run.ArtifactPath,
		TrainLoss:         run.TrainLoss,
		ValLoss:           run.ValLoss,
		ValRMSE:           run.ValRMSE,
		DirectionAccuracy: run.DirectionAccuracy,
		InputLen:          run.InputLen,
		PredLen:           run.PredLen,
		Epochs:            run.Epochs,
		BatchSize:         run.BatchSize,
		LearningRate:      run.LearningRate,
		TrainSamples:      run.TrainSamples,
		ValSamples:        run.ValSamples,
		TrainedAtUTC:      run.TrainedAtUTC,
	}
}

func (r modelRunRow) toModel() models.ModelRun {
	return models.ModelRun{
		ID: r.ID,
		TrainResponse: models.TrainResponse{
			Ticker:            r.Ticker,
			Source:            models.DataSource(r.Source),
			Transform:         r.Transform,
			ArtifactPath:      r.ArtifactPath,
			TrainLoss:         r.TrainLoss,
			ValLoss:           r.ValLoss,
			ValRMSE:           r.ValRMSE,
			DirectionAccuracy: r.DirectionAccuracy,
			InputLen:          r.InputLen,
			PredLen:           r.PredLen,
			TrainSamples:      r.TrainSamples,
			ValSamples:        r.ValSamples,
			TrainedAtUTC:      r.TrainedAtUTC,
		},
		Period:       r.Period,
		Epochs:       r.Epochs,
		BatchSize:    r.BatchSize,
		LearningRate: r.LearningRate,
		CreatedAt:    r.CreatedAt,
	}
}

// SQLiteModelRegistry keeps training runs in a SQLite file through gorm.
type SQLiteModelRegistry struct {
	db *gorm.DB
	l  *applogger.Logger
}

// NewSQLiteModelRegistry opens (or creates) the registry database at path.
func NewSQLiteModelRegistry(path string) (*SQLiteModelRegistry, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := db.AutoMigrate(&modelRunRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &SQLiteModelRegistry{db: db}, nil
}

// SetLogger injects a structured logger.
func (r *SQLiteModelRegistry) SetLogger(l *applogger.Logger) { r.l = l }

// Save inserts the run and fills in its ID and CreatedAt.
func (r *SQLiteModelRegistry) Save(ctx context.Context, run *models.ModelRun) error {
	row := toRow(run)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if r.l != nil {
			r.l.Error("registry save error", applogger.String("ticker", run.Ticker), applogger.Error(err))
		}
		return fmt.Errorf("save model run: %w", err)
	}
	run.ID = row.ID
	run.CreatedAt = row.CreatedAt
	return nil
}

// List returns the newest runs first, optionally for one ticker.
func (r *SQLiteModelRegistry) List(ctx context.Context, ticker string, limit int) ([]models.ModelRun, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []modelRunRow
	if err := q.Find(&rows).Error; err != nil {
		if r.l != nil {
			r.l.Error("registry list error", applogger.String("ticker", ticker), applogger.Error(err))
		}
		return nil, fmt.Errorf("list model runs: %w", err)
	}
	out := make([]models.ModelRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *SQLiteModelRegistry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
