package collector

import (
	"context"

	"ForecastChart/internal/model"
)

// Predictor is the remote inference service a prediction cycle talks to.
type Predictor interface {
	FetchRecent(ctx context.Context, req model.PredictionRequest) (*model.RecentPrices, error)
	FetchForecast(ctx context.Context, req model.PredictionRequest) (*model.Forecast, error)
	// FetchMetrics sends scenario and model only when they are non-empty.
	FetchMetrics(ctx context.Context, req model.PredictionRequest) ([]model.MetricResult, error)
	Name() string
}
