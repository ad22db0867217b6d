package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func exerciseRecorder(t *testing.T, r Recorder) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)

	first := &PredictionRecord{
		CycleID:       uuid.NewString(),
		Ticker:        "AAPL",
		Scenario:      "baseline",
		Model:         "lstm",
		HistoryPoints: 30,
		LastClose:     ptr(101),
		PredPrices:    []float64{103, 104},
		ForecastDates: []string{"2025-01-03", "2025-01-04"},
		DA:            ptr(57.5),
		Duration:      1500 * time.Millisecond,
		CreatedAt:     base,
	}
	second := &PredictionRecord{
		CycleID:    uuid.NewString(),
		Ticker:     "AAPL",
		PredPrices: []float64{1},
		CreatedAt:  base.Add(time.Hour),
	}
	other := &PredictionRecord{CycleID: uuid.NewString(), Ticker: "MSFT", CreatedAt: base.Add(2 * time.Hour)}

	for _, rec := range []*PredictionRecord{first, second, other} {
		require.NoError(t, r.RecordPrediction(ctx, rec))
	}
	require.NoError(t, r.RecordFailure(ctx, &FailureEvent{
		CycleID: uuid.NewString(), Ticker: "AAPL", StatusCode: 502, Message: "upstream down",
	}))

	got, err := r.RecentPredictions(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.CycleID, got[0].CycleID)
	assert.Nil(t, got[0].DA)
	assert.Nil(t, got[0].LastClose)

	old := got[1]
	assert.Equal(t, first.CycleID, old.CycleID)
	assert.Equal(t, []float64{103, 104}, old.PredPrices)
	assert.Equal(t, []string{"2025-01-03", "2025-01-04"}, old.ForecastDates)
	assert.Equal(t, 57.5, *old.DA)
	assert.Equal(t, 101.0, *old.LastClose)
	assert.Equal(t, 1500*time.Millisecond, old.Duration)
	assert.True(t, base.Equal(old.CreatedAt))

	all, err := r.RecentPredictions(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "MSFT", all[0].Ticker)
}

func TestSQLiteRecorder(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	exerciseRecorder(t, r)
}

func TestSQLiteRecorder_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	r, err := NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	require.NoError(t, r.RecordPrediction(context.Background(), &PredictionRecord{CycleID: "a", Ticker: "AAPL"}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.RecentPredictions(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPostgresRecorder(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	r, err := NewPostgresRecorder(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	_, err = r.pool.Exec(ctx, "TRUNCATE predictions, prediction_failures")
	require.NoError(t, err)
	exerciseRecorder(t, r)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	require.NoError(t, r.RecordPrediction(context.Background(), &PredictionRecord{}))
	got, err := r.RecentPredictions(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, r.Close())
}
