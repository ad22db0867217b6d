package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists prediction history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while cycles are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id       TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			ticker         TEXT NOT NULL,
			scenario       TEXT,
			model          TEXT,
			history_points INTEGER,
			last_close     REAL,
			pred_prices    TEXT,
			forecast_dates TEXT,
			da             REAL,
			duration_ms    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_ticker_ts ON predictions(ticker, timestamp)`,

		`CREATE TABLE IF NOT EXISTS prediction_failures (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id    TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			ticker      TEXT,
			scenario    TEXT,
			model       TEXT,
			status_code INTEGER,
			message     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON prediction_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPrediction(ctx context.Context, rec *PredictionRecord) error {
	prices, err := json.Marshal(rec.PredPrices)
	if err != nil {
		return err
	}
	dates, err := json.Marshal(rec.ForecastDates)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO predictions
		(cycle_id, timestamp, ticker, scenario, model, history_points,
		 last_close, pred_prices, forecast_dates, da, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.CycleID, stamp(rec.CreatedAt).UnixMilli(), rec.Ticker, rec.Scenario, rec.Model,
		rec.HistoryPoints, nullFloat(rec.LastClose), string(prices), string(dates),
		nullFloat(rec.DA), rec.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(ctx context.Context, evt *FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO prediction_failures
		(cycle_id, timestamp, ticker, scenario, model, status_code, message)
		VALUES (?,?,?,?,?,?,?)`,
		evt.CycleID, stamp(evt.CreatedAt).UnixMilli(), evt.Ticker, evt.Scenario, evt.Model,
		evt.StatusCode, evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecentPredictions(ctx context.Context, ticker string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT cycle_id, timestamp, ticker, scenario, model,
		history_points, last_close, pred_prices, forecast_dates, da, duration_ms
		FROM predictions
		WHERE (? = '' OR ticker = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, ticker, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		var (
			rec             PredictionRecord
			ts, durationMs  int64
			lastClose, da   sql.NullFloat64
			prices, dates   string
			scenario, model sql.NullString
		)
		if err := rows.Scan(&rec.CycleID, &ts, &rec.Ticker, &scenario, &model,
			&rec.HistoryPoints, &lastClose, &prices, &dates, &da, &durationMs); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(ts).UTC()
		rec.Scenario = scenario.String
		rec.Model = model.String
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.LastClose = floatPtr(lastClose)
		rec.DA = floatPtr(da)
		if err := json.Unmarshal([]byte(prices), &rec.PredPrices); err != nil {
			return nil, fmt.Errorf("decode pred_prices: %w", err)
		}
		if err := json.Unmarshal([]byte(dates), &rec.ForecastDates); err != nil {
			return nil, fmt.Errorf("decode forecast_dates: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
