package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/db"
)

const timestampLayout = "2006-01-02 15:04:05"

type almanacRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewAlmanacRepository creates the persistent date-keyed cache. Both
// family tables are created if absent, so an ephemeral database works
// without running migrations first.
func NewAlmanacRepository(database *db.Database, logger *logrus.Logger) (ports.AlmanacRepository, error) {
	r := &almanacRepository{
		db:     database,
		logger: logger,
	}
	if err := r.ensureSchema(context.Background()); err != nil {
		if logger != nil {
			logger.WithError(err).Error("db: failed to initialize almanac tables")
		}
		return nil, err
	}
	return r, nil
}

func (r *almanacRepository) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS day_calendar (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT UNIQUE NOT NULL,
			data TEXT,
			create_time TEXT DEFAULT CURRENT_TIMESTAMP NOT NULL,
			update_time TEXT DEFAULT CURRENT_TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hour_calendar (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT UNIQUE NOT NULL,
			data TEXT,
			create_time TEXT DEFAULT CURRENT_TIMESTAMP NOT NULL,
			update_time TEXT DEFAULT CURRENT_TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_day_calendar_date ON day_calendar(date)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_hour_calendar_date ON hour_calendar(date)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// GetDay returns the cached day record for the date, almanac.ErrNotFound
// if no row exists, or *almanac.DecodeError if the stored payload is
// malformed.
func (r *almanacRepository) GetDay(ctx context.Context, date string) (almanac.DayRecord, error) {
	record, err := r.get(ctx, "day_calendar", almanac.DimensionDay, date)
	if err != nil {
		return nil, err
	}
	return almanac.DayRecord(record), nil
}

// PutDay upserts the day record for the date.
func (r *almanacRepository) PutDay(ctx context.Context, date string, record almanac.DayRecord) error {
	return r.put(ctx, "day_calendar", almanac.DimensionDay, date, record)
}

// GetHour returns the cached hour record for the date, with the same
// absence and corruption semantics as GetDay.
func (r *almanacRepository) GetHour(ctx context.Context, date string) (almanac.HourRecord, error) {
	record, err := r.get(ctx, "hour_calendar", almanac.DimensionHour, date)
	if err != nil {
		return nil, err
	}
	return almanac.HourRecord(record), nil
}

// PutHour upserts the hour record for the date.
func (r *almanacRepository) PutHour(ctx context.Context, date string, record almanac.HourRecord) error {
	return r.put(ctx, "hour_calendar", almanac.DimensionHour, date, record)
}

func (r *almanacRepository) get(ctx context.Context, table string, dimension almanac.Dimension, date string) (map[string]any, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var data sql.NullString
	query := fmt.Sprintf("SELECT data FROM %s WHERE date = ?", table)
	if err := tx.GetContext(ctx, &data, query, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, almanac.ErrNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"dimension": dimension, "date": date}).WithError(err).Error("db: almanac lookup failed")
		}
		return nil, err
	}

	// An empty payload means the row is present but unusable; that is
	// corruption, not absence.
	var record map[string]any
	if !data.Valid || data.String == "" {
		return nil, &almanac.DecodeError{Dimension: dimension, Date: date, Err: errors.New("empty payload")}
	}
	if err := json.Unmarshal([]byte(data.String), &record); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"dimension": dimension, "date": date}).WithError(err).Error("db: stored almanac payload is malformed")
		}
		return nil, &almanac.DecodeError{Dimension: dimension, Date: date, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return record, nil
}

func (r *almanacRepository) put(ctx context.Context, table string, dimension almanac.Dimension, date string, record map[string]any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return &almanac.WriteError{Dimension: dimension, Date: date, Err: err}
	}

	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return &almanac.WriteError{Dimension: dimension, Date: date, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// Single-statement upsert: create_time survives every overwrite,
	// data and update_time are refreshed. No read-then-branch, so two
	// concurrent writers cannot race between check and write.
	now := time.Now().Format(timestampLayout)
	query := fmt.Sprintf(`INSERT INTO %s (date, data, create_time, update_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			data = excluded.data,
			update_time = excluded.update_time`, table)

	if _, err := tx.ExecContext(ctx, query, date, string(payload), now, now); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"dimension": dimension, "date": date}).WithError(err).Error("db: almanac upsert failed")
		}
		return &almanac.WriteError{Dimension: dimension, Date: date, Err: err}
	}

	if err := tx.Commit(); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"dimension": dimension, "date": date}).WithError(err).Error("db: almanac upsert commit failed")
		}
		return &almanac.WriteError{Dimension: dimension, Date: date, Err: err}
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"dimension": dimension, "date": date}).Debug("db: almanac record upserted")
	}
	return nil
}
