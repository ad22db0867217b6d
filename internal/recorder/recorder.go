package recorder

import (
	"context"
	"time"
)

// PredictionRecord is one finished prediction cycle.
type PredictionRecord struct {
	CycleID       string
	Ticker        string
	Scenario      string
	Model         string
	HistoryPoints int
	LastClose     *float64
	PredPrices    []float64
	ForecastDates []string
	DA            *float64
	Duration      time.Duration
	CreatedAt     time.Time
}

// FailureEvent is one prediction cycle that was aborted by an error.
type FailureEvent struct {
	CycleID    string
	Ticker     string
	Scenario   string
	Model      string
	StatusCode int // upstream HTTP status, 0 when the call never got an answer
	Message    string
	CreatedAt  time.Time
}

// Recorder persists prediction history for later analysis.
type Recorder interface {
	RecordPrediction(ctx context.Context, rec *PredictionRecord) error
	RecordFailure(ctx context.Context, evt *FailureEvent) error
	// RecentPredictions returns the newest records first. An empty ticker matches all.
	RecentPredictions(ctx context.Context, ticker string, limit int) ([]PredictionRecord, error)
	Close() error
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
