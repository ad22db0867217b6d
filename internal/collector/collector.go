package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ForecastChart/internal/model"
)

// ErrNoHistory is returned when the recent prices response has no usable close.
var ErrNoHistory = errors.New("no recent prices returned")

// MockPredictor returns controllable fixed data for development and testing.
type MockPredictor struct {
	Recent      *model.RecentPrices
	Forecast    *model.Forecast
	Metrics     []model.MetricResult
	RecentErr   error
	ForecastErr error
	MetricsErr  error

	Calls []string
}

func (m *MockPredictor) Name() string { return "mock" }

func (m *MockPredictor) FetchRecent(_ context.Context, _ model.PredictionRequest) (*model.RecentPrices, error) {
	m.Calls = append(m.Calls, "recent")
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	if m.Recent != nil {
		return m.Recent, nil
	}
	return &model.RecentPrices{
		Close: []float64{100, 102, 101},
		Dates: []string{"2024-01-01", "2024-01-02", "2024-01-03"},
	}, nil
}

func (m *MockPredictor) FetchForecast(_ context.Context, _ model.PredictionRequest) (*model.Forecast, error) {
	m.Calls = append(m.Calls, "forecast")
	if m.ForecastErr != nil {
		return nil, m.ForecastErr
	}
	if m.Forecast != nil {
		return m.Forecast, nil
	}
	return &model.Forecast{PredPrices: []float64{103, 104}}, nil
}

func (m *MockPredictor) FetchMetrics(_ context.Context, _ model.PredictionRequest) ([]model.MetricResult, error) {
	m.Calls = append(m.Calls, "metrics")
	if m.MetricsErr != nil {
		return nil, m.MetricsErr
	}
	return m.Metrics, nil
}

// Collector runs the three inference calls of one prediction cycle in order.
type Collector struct {
	Predictor  Predictor
	Logger     *zap.Logger
	MinLatency time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a new Collector.
func NewCollector(predictor Predictor, logger *zap.Logger, minLatency time.Duration) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Predictor:  predictor,
		Logger:     logger,
		MinLatency: minLatency,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Collect fetches recent prices, metrics and the forecast. A metrics failure only
// leaves DA unset; any other failure aborts the cycle. Successful results are held
// back until MinLatency has passed since the start of the cycle.
func (c *Collector) Collect(ctx context.Context, req model.PredictionRequest) (*model.Prediction, error) {
	start := c.now()
	log := c.Logger.With(zap.String("ticker", req.Ticker), zap.String("predictor", c.Predictor.Name()))

	recent, err := c.Predictor.FetchRecent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch recent prices: %w", err)
	}
	if len(recent.Close) == 0 {
		return nil, ErrNoHistory
	}

	var da *float64
	metrics, err := c.Predictor.FetchMetrics(ctx, req)
	if err != nil {
		log.Warn("metrics unavailable", zap.Error(err))
	} else {
		da = SelectDA(metrics, req.Scenario, req.Model)
	}

	forecast, err := c.Predictor.FetchForecast(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	if wait := c.MinLatency - c.now().Sub(start); wait > 0 {
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	log.Debug("prediction collected",
		zap.Int("closes", len(recent.Close)),
		zap.Int("horizon", len(forecast.PredPrices)),
		zap.Bool("has_da", da != nil),
	)
	return &model.Prediction{
		Request:     req,
		Recent:      *recent,
		Forecast:    *forecast,
		DA:          da,
		CompletedAt: c.now(),
	}, nil
}

// SelectDA picks the DA of the result matching scenario and model, falling back to
// the first result that carries a DA.
func SelectDA(results []model.MetricResult, scenario, modelType string) *float64 {
	var fallback *float64
	for _, r := range results {
		if r.DA == nil {
			continue
		}
		if r.Scenario == scenario && r.ModelType == modelType {
			return r.DA
		}
		if fallback == nil {
			fallback = r.DA
		}
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
