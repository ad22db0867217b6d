package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresRecorder persists prediction history to PostgreSQL.
type PostgresRecorder struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresRecorder connects to dsn and runs migrations.
func NewPostgresRecorder(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := connect(ctx, dsn)
	if err != nil {
		return nil, err
	}

	r := &PostgresRecorder{pool: pool, log: logger}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("postgres recorder opened")
	return r, nil
}

func connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return p, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id             BIGSERIAL PRIMARY KEY,
			cycle_id       TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			ticker         TEXT NOT NULL,
			scenario       TEXT,
			model          TEXT,
			history_points INTEGER,
			last_close     DOUBLE PRECISION,
			pred_prices    DOUBLE PRECISION[],
			forecast_dates TEXT[],
			da             DOUBLE PRECISION,
			duration_ms    BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_ticker_ts ON predictions(ticker, created_at)`,

		`CREATE TABLE IF NOT EXISTS prediction_failures (
			id          BIGSERIAL PRIMARY KEY,
			cycle_id    TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			ticker      TEXT,
			scenario    TEXT,
			model       TEXT,
			status_code INTEGER,
			message     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON prediction_failures(created_at)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresRecorder) RecordPrediction(ctx context.Context, rec *PredictionRecord) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO predictions
		(cycle_id, created_at, ticker, scenario, model, history_points,
		 last_close, pred_prices, forecast_dates, da, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.CycleID, stamp(rec.CreatedAt), rec.Ticker, rec.Scenario, rec.Model, rec.HistoryPoints,
		rec.LastClose, rec.PredPrices, rec.ForecastDates, rec.DA, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) RecordFailure(ctx context.Context, evt *FailureEvent) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO prediction_failures
		(cycle_id, created_at, ticker, scenario, model, status_code, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		evt.CycleID, stamp(evt.CreatedAt), evt.Ticker, evt.Scenario, evt.Model, evt.StatusCode, evt.Message,
	)
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) RecentPredictions(ctx context.Context, ticker string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `SELECT cycle_id, created_at, ticker,
		COALESCE(scenario, ''), COALESCE(model, ''), COALESCE(history_points, 0),
		last_close, COALESCE(pred_prices, '{}'), COALESCE(forecast_dates, '{}'), da, COALESCE(duration_ms, 0)
		FROM predictions
		WHERE ($1 = '' OR ticker = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		var (
			rec        PredictionRecord
			durationMs int64
		)
		if err := rows.Scan(&rec.CycleID, &rec.CreatedAt, &rec.Ticker, &rec.Scenario, &rec.Model,
			&rec.HistoryPoints, &rec.LastClose, &rec.PredPrices, &rec.ForecastDates, &rec.DA, &durationMs); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRecorder) Close() error {
	r.log.Info("closing postgres recorder")
	r.pool.Close()
	return nil
}
