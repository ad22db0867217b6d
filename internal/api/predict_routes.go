package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ForecastChart/internal/collector"
	"ForecastChart/internal/display"
	"ForecastChart/internal/model"
	"ForecastChart/internal/session"
)

type predictResponse struct {
	CycleID   string        `json:"cycle_id"`
	ElapsedMs int64         `json:"elapsed_ms"`
	Table     display.Table `json:"table"`
}

type sessionResponse struct {
	Busy      bool                  `json:"busy"`
	Mode      model.Mode            `json:"mode"`
	CycleID   string                `json:"cycle_id,omitempty"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty"`
	Dates     []string              `json:"dates"`
	Bars      []model.HistoricalBar `json:"bars"`
	Forecast  []model.ForecastPoint `json:"forecast"`
	Table     display.Table         `json:"table"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	// an empty body predicts with the configured defaults
	var req model.PredictionRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.svc.Predict(r.Context(), req)
	if err != nil {
		var apiErr *collector.APIError
		switch {
		case errors.Is(err, session.ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &apiErr):
			writeError(w, http.StatusBadGateway, apiErr.Message)
		case errors.Is(err, collector.ErrNoHistory):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			s.log.Error("predict", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		CycleID:   res.CycleID,
		ElapsedMs: res.Duration.Milliseconds(),
		Table:     res.Table,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.svc.Session()
	snap := sess.Snapshot()
	bars, forecast := sess.Series()

	resp := sessionResponse{
		Busy:     sess.Busy(),
		Mode:     sess.Mode(),
		CycleID:  snap.CycleID,
		Dates:    snap.Dates,
		Bars:     bars,
		Forecast: forecast,
		Table:    display.BuildTable(snap),
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	if resp.Dates == nil {
		resp.Dates = []string{}
	}
	if resp.Bars == nil {
		resp.Bars = []model.HistoricalBar{}
	}
	if resp.Forecast == nil {
		resp.Forecast = []model.ForecastPoint{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20)
	records, err := s.svc.History(r.Context(), r.URL.Query().Get("ticker"), limit)
	if err != nil {
		s.log.Error("history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	type item struct {
		CycleID       string    `json:"cycle_id"`
		Ticker        string    `json:"ticker"`
		Scenario      string    `json:"scenario"`
		Model         string    `json:"model"`
		LastClose     string    `json:"last_close"`
		PredPrices    []float64 `json:"pred_prices"`
		ForecastDates []string  `json:"forecast_dates"`
		DA            string    `json:"da"`
		DurationMs    int64     `json:"duration_ms"`
		CreatedAt     time.Time `json:"created_at"`
	}
	out := make([]item, 0, len(records))
	for _, rec := range records {
		out = append(out, item{
			CycleID:       rec.CycleID,
			Ticker:        rec.Ticker,
			Scenario:      rec.Scenario,
			Model:         rec.Model,
			LastClose:     display.Price(rec.LastClose),
			PredPrices:    rec.PredPrices,
			ForecastDates: rec.ForecastDates,
			DA:            display.Percent(rec.DA),
			DurationMs:    rec.Duration.Milliseconds(),
			CreatedAt:     rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "predictions": out})
}
