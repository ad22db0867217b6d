package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ForecastChart/internal/model"
)

const (
	recentPath   = "/recent"
	forecastPath = "/predict"
	metricsPath  = "/metrics"
)

// APIError is a non-2xx answer from the inference service.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

// InferenceClient implements Predictor over the inference service JSON API.
type InferenceClient struct {
	BaseURL string
	Client  *http.Client
}

// NewInferenceClient creates a client with optional proxy support.
func NewInferenceClient(baseURL, proxyURL string, timeout time.Duration) *InferenceClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InferenceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *InferenceClient) Name() string { return "inference" }

type recentRequest struct {
	Ticker     string `json:"ticker"`
	Scenario   string `json:"scenario"`
	Days       int    `json:"days"`
	ReturnType string `json:"return_type"`
}

type recentResponse struct {
	Close []any    `json:"close"`
	Dates []string `json:"dates"`
}

func (c *InferenceClient) FetchRecent(ctx context.Context, req model.PredictionRequest) (*model.RecentPrices, error) {
	var resp recentResponse
	body := recentRequest{Ticker: req.Ticker, Scenario: req.Scenario, Days: req.Days, ReturnType: req.ReturnType}
	if err := c.post(ctx, "fetch recent", recentPath, body, &resp); err != nil {
		return nil, err
	}

	// a close that is not a number is dropped together with its date
	out := &model.RecentPrices{
		Close: make([]float64, 0, len(resp.Close)),
		Dates: make([]string, 0, len(resp.Dates)),
	}
	for i, raw := range resp.Close {
		v, ok := toFloat(raw)
		if !ok {
			continue
		}
		out.Close = append(out.Close, v)
		if i < len(resp.Dates) {
			out.Dates = append(out.Dates, resp.Dates[i])
		}
	}
	return out, nil
}

type forecastRequest struct {
	Ticker   string `json:"ticker"`
	Scenario string `json:"scenario"`
	Model    string `json:"model"`
}

type forecastResponse struct {
	PredPrices []any `json:"pred_prices"`
	LastClose  any   `json:"last_close"`
}

func (c *InferenceClient) FetchForecast(ctx context.Context, req model.PredictionRequest) (*model.Forecast, error) {
	var resp forecastResponse
	body := forecastRequest{Ticker: req.Ticker, Scenario: req.Scenario, Model: req.Model}
	if err := c.post(ctx, "fetch forecast", forecastPath, body, &resp); err != nil {
		return nil, err
	}

	out := &model.Forecast{PredPrices: make([]float64, 0, len(resp.PredPrices))}
	for _, raw := range resp.PredPrices {
		if v, ok := toFloat(raw); ok {
			out.PredPrices = append(out.PredPrices, v)
		}
	}
	if v, ok := toFloat(resp.LastClose); ok {
		out.LastClose = &v
	}
	return out, nil
}

type metricsRequest struct {
	Ticker   string `json:"ticker"`
	Scenario string `json:"scenario,omitempty"`
	Model    string `json:"model,omitempty"`
}

type metricsResponse struct {
	Results []struct {
		Scenario  string `json:"scenario"`
		ModelType string `json:"model_type"`
		DA        any    `json:"DA"`
	} `json:"results"`
}

func (c *InferenceClient) FetchMetrics(ctx context.Context, req model.PredictionRequest) ([]model.MetricResult, error) {
	var resp metricsResponse
	body := metricsRequest{Ticker: req.Ticker, Scenario: req.Scenario, Model: req.Model}
	if err := c.post(ctx, "fetch metrics", metricsPath, body, &resp); err != nil {
		return nil, err
	}

	out := make([]model.MetricResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		m := model.MetricResult{Scenario: r.Scenario, ModelType: r.ModelType}
		if v, ok := toFloat(r.DA); ok {
			m.DA = &v
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *InferenceClient) post(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp, body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

// errorMessage prefers a string "detail" field, then the raw body, then the status text.
func errorMessage(resp *http.Response, body []byte) string {
	var detail struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil {
		if s, ok := detail.Detail.(string); ok && s != "" {
			return s
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// toFloat coerces a decoded JSON value to a finite number.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
