package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ForecastChart/internal/calculator"
	"ForecastChart/internal/chart"
	"ForecastChart/internal/model"
)

// ErrBusy is returned by TryBegin while another prediction cycle is in flight.
var ErrBusy = errors.New("a prediction is already running")

// Snapshot is the data of the last successful prediction cycle.
type Snapshot struct {
	CycleID       string    `json:"cycle_id"`
	Ticker        string    `json:"ticker"`
	Scenario      string    `json:"scenario"`
	Model         string    `json:"model"`
	Closes        []float64 `json:"closes"`
	Dates         []string  `json:"dates"`
	Predicted     []float64 `json:"predicted"`
	ForecastDates []string  `json:"forecast_dates"`
	LastClose     *float64  `json:"last_close,omitempty"`
	DA            *float64  `json:"da,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Empty reports whether no cycle has completed yet.
func (s Snapshot) Empty() bool { return len(s.Closes) == 0 && len(s.Predicted) == 0 }

// Session owns the chart series. Every successful cycle replaces the series as a
// whole; readers never observe a half-applied cycle.
type Session struct {
	busy atomic.Bool

	mu       sync.RWMutex
	mode     model.Mode
	snap     Snapshot
	bars     []model.HistoricalBar
	forecast []model.ForecastPoint
}

var _ chart.SeriesSource = (*Session)(nil)

// New creates an empty session drawing in mode.
func New(mode model.Mode) *Session {
	if !mode.Valid() {
		mode = model.ModeCandlestick
	}
	return &Session{mode: mode}
}

// TryBegin claims the session for one prediction cycle.
func (s *Session) TryBegin() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

// End releases the claim taken by TryBegin.
func (s *Session) End() { s.busy.Store(false) }

// Busy reports whether a cycle is in flight.
func (s *Session) Busy() bool { return s.busy.Load() }

// Apply rebuilds the series from a finished prediction and swaps them in.
func (s *Session) Apply(p *model.Prediction) Snapshot {
	snap := Snapshot{
		CycleID:   p.CycleID,
		Ticker:    p.Request.Ticker,
		Scenario:  p.Request.Scenario,
		Model:     p.Request.Model,
		Closes:    append([]float64(nil), p.Recent.Close...),
		Dates:     append([]string(nil), p.Recent.Dates...),
		Predicted: append([]float64(nil), p.Forecast.PredPrices...),
		DA:        p.DA,
		UpdatedAt: p.CompletedAt,
	}
	switch {
	case p.Forecast.LastClose != nil:
		v := *p.Forecast.LastClose
		snap.LastClose = &v
	case len(snap.Closes) > 0:
		v := snap.Closes[len(snap.Closes)-1]
		snap.LastClose = &v
	}
	if len(snap.Dates) > 0 {
		// a malformed last date leaves the forecast undated
		snap.ForecastDates, _ = calculator.ForecastDates(snap.Dates[len(snap.Dates)-1], len(snap.Predicted))
	}

	s.Restore(snap)
	return snap
}

// Restore swaps in a previously saved snapshot.
func (s *Session) Restore(snap Snapshot) {
	bars := calculator.BuildBars(snap.Closes)
	forecast := calculator.BuildForecast(bars, snap.Predicted)

	s.mu.Lock()
	s.snap = snap
	s.bars = bars
	s.forecast = forecast
	s.mu.Unlock()
}

// Series implements chart.SeriesSource.
func (s *Session) Series() ([]model.HistoricalBar, []model.ForecastPoint) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bars, s.forecast
}

// Snapshot returns the data of the last applied cycle.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Mode returns the draw mode of the session.
func (s *Session) Mode() model.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode changes the draw mode of the session.
func (s *Session) SetMode(mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", chart.ErrInvalidMode, mode)
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}
