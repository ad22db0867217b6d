package model

import "time"

// PredictionRequest selects what the inference service should forecast.
type PredictionRequest struct {
	Ticker     string `json:"ticker"`
	Scenario   string `json:"scenario"`
	Model      string `json:"model"`
	ReturnType string `json:"return_type"`
	Days       int    `json:"days"`
}

// RecentPrices is the recent closing price history of a ticker.
// Close and Dates are index-aligned.
type RecentPrices struct {
	Close []float64
	Dates []string
}

// Forecast is the inference output for one ticker.
type Forecast struct {
	PredPrices []float64
	LastClose  *float64
}

// MetricResult is the directional accuracy of one scenario/model pair.
type MetricResult struct {
	Scenario  string
	ModelType string
	DA        *float64
}

// Prediction is the outcome of one full prediction cycle.
type Prediction struct {
	CycleID     string
	Request     PredictionRequest
	Recent      RecentPrices
	Forecast    Forecast
	DA          *float64 // nil when metrics were unavailable
	CompletedAt time.Time
}
