package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ForecastChart/internal/canvas"
	"ForecastChart/internal/chart"
	"ForecastChart/internal/collector"
	"ForecastChart/internal/config"
	"ForecastChart/internal/display"
	"ForecastChart/internal/model"
	"ForecastChart/internal/recorder"
	"ForecastChart/internal/session"
)

// Result is what a finished prediction cycle hands back to its caller.
type Result struct {
	Snapshot session.Snapshot `json:"-"`
	Table    display.Table    `json:"table"`
	CycleID  string           `json:"cycle_id"`
	Duration time.Duration    `json:"-"`
}

// RenderOptions overrides the configured chart size, mode and format for one render.
// Zero values fall back to the configuration.
type RenderOptions struct {
	Width      float64
	Height     float64
	PixelRatio float64
	Mode       model.Mode
	Format     canvas.Format
}

// Rendered describes an encoded chart.
type Rendered struct {
	chart.Frame
	Format canvas.Format
}

// Service runs prediction cycles against a session and renders its chart.
type Service struct {
	prediction config.PredictionConfig
	chartCfg   config.ChartConfig
	format     canvas.Format
	stateFile  string

	collector *collector.Collector
	session   *session.Session
	recorder  recorder.Recorder
	log       *zap.Logger

	renderMu sync.Mutex
	canvas   *canvas.Canvas
	renderer *chart.Renderer

	newID func() string
}

// New wires a service. rec may be nil.
func New(cfg *config.Config, coll *collector.Collector, sess *session.Session, rec recorder.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}

	theme := chart.DefaultTheme()
	if cfg.Chart.CandleWidth > 0 {
		theme.CandleWidth = cfg.Chart.CandleWidth
	}
	padding := cfg.Chart.Padding
	if padding == (model.Padding{}) {
		padding = chart.DefaultPadding
	}
	format, err := canvas.ParseFormat(cfg.Chart.Format)
	if err != nil {
		format = canvas.FormatPNG
	}
	cv := canvas.New(format)

	return &Service{
		prediction: cfg.Prediction,
		chartCfg:   cfg.Chart,
		format:     format,
		stateFile:  cfg.Session.StateFile,
		collector:  coll,
		session:    sess,
		recorder:   rec,
		log:        logger,
		canvas:     cv,
		renderer:   chart.NewRenderer(cv, sess, theme, padding),
		newID:      uuid.NewString,
	}
}

// Session returns the session the service works on.
func (s *Service) Session() *session.Session { return s.session }

// NormalizeRequest fills empty fields of req from the configured defaults.
func (s *Service) NormalizeRequest(req model.PredictionRequest) model.PredictionRequest {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		req.Ticker = s.prediction.Ticker
	}
	if req.Scenario == "" {
		req.Scenario = s.prediction.Scenario
	}
	if req.Model == "" {
		req.Model = s.prediction.Model
	}
	if req.ReturnType == "" {
		req.ReturnType = s.prediction.ReturnType
	}
	if req.Days <= 0 {
		req.Days = s.prediction.LookbackDays
	}
	return req
}

// Predict runs one prediction cycle. It returns session.ErrBusy when a cycle is
// already running; the running cycle is not affected.
func (s *Service) Predict(ctx context.Context, req model.PredictionRequest) (*Result, error) {
	if err := s.session.TryBegin(); err != nil {
		return nil, err
	}
	defer s.session.End()

	req = s.NormalizeRequest(req)
	cycleID := s.newID()
	log := s.log.With(zap.String("cycle_id", cycleID), zap.String("ticker", req.Ticker))
	start := time.Now()

	p, err := s.collector.Collect(ctx, req)
	if err != nil {
		log.Error("prediction failed", zap.Error(err))
		s.recordFailure(ctx, cycleID, req, err)
		return nil, err
	}
	p.CycleID = cycleID
	snap := s.session.Apply(p)
	elapsed := time.Since(start)

	if err := s.saveState(); err != nil {
		log.Warn("save session state failed", zap.Error(err))
	}
	rec := &recorder.PredictionRecord{
		CycleID:       cycleID,
		Ticker:        snap.Ticker,
		Scenario:      snap.Scenario,
		Model:         snap.Model,
		HistoryPoints: len(snap.Closes),
		LastClose:     snap.LastClose,
		PredPrices:    snap.Predicted,
		ForecastDates: snap.ForecastDates,
		DA:            snap.DA,
		Duration:      elapsed,
		CreatedAt:     snap.UpdatedAt,
	}
	if err := s.recorder.RecordPrediction(ctx, rec); err != nil {
		log.Warn("record prediction failed", zap.Error(err))
	}

	log.Info("prediction finished",
		zap.Int("history", len(snap.Closes)),
		zap.Int("horizon", len(snap.Predicted)),
		zap.Duration("elapsed", elapsed),
	)
	return &Result{
		Snapshot: snap,
		Table:    display.BuildTable(snap),
		CycleID:  cycleID,
		Duration: elapsed,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, cycleID string, req model.PredictionRequest, cause error) {
	evt := &recorder.FailureEvent{
		CycleID:   cycleID,
		Ticker:    req.Ticker,
		Scenario:  req.Scenario,
		Model:     req.Model,
		Message:   cause.Error(),
		CreatedAt: time.Now(),
	}
	var apiErr *collector.APIError
	if errors.As(cause, &apiErr) {
		evt.StatusCode = apiErr.StatusCode
	}
	// the request context may already be cancelled
	if err := s.recorder.RecordFailure(context.WithoutCancel(ctx), evt); err != nil {
		s.log.Warn("record failure failed", zap.Error(err))
	}
}

// RenderChart paints the current session and writes the encoded image to w.
func (s *Service) RenderChart(w io.Writer, opts RenderOptions) (Rendered, error) {
	opts = s.renderDefaults(opts)

	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if err := s.renderer.SetMode(opts.Mode); err != nil {
		return Rendered{}, err
	}
	s.canvas.SetFormat(opts.Format)
	if err := s.renderer.SetupCanvas(opts.Width, opts.Height, opts.PixelRatio); err != nil {
		return Rendered{}, err
	}
	frame, err := s.renderer.Render()
	if err != nil {
		return Rendered{}, fmt.Errorf("render: %w", err)
	}
	if err := s.canvas.Encode(w); err != nil {
		return Rendered{}, err
	}

	s.log.Debug("chart rendered",
		zap.String("mode", string(frame.Mode)),
		zap.String("format", string(opts.Format)),
		zap.Int("total_points", frame.TotalPoints),
		zap.Float64("min_price", frame.Range.MinPrice),
		zap.Float64("max_price", frame.Range.MaxPrice),
	)
	return Rendered{Frame: frame, Format: opts.Format}, nil
}

func (s *Service) renderDefaults(opts RenderOptions) RenderOptions {
	if opts.Width <= 0 {
		opts.Width = s.chartCfg.Width
	}
	if opts.Height <= 0 {
		opts.Height = s.chartCfg.Height
	}
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = s.chartCfg.PixelRatio
	}
	if opts.Mode == "" {
		opts.Mode = s.session.Mode()
	}
	if opts.Format == "" {
		opts.Format = s.format
	}
	return opts
}

// SetMode changes the session draw mode and persists it.
func (s *Service) SetMode(mode model.Mode) error {
	if err := s.session.SetMode(mode); err != nil {
		return err
	}
	if err := s.saveState(); err != nil {
		s.log.Warn("save session state failed", zap.Error(err))
	}
	return nil
}

// Table formats the current session.
func (s *Service) Table() display.Table {
	return display.BuildTable(s.session.Snapshot())
}

// History returns recorded cycles, newest first.
func (s *Service) History(ctx context.Context, ticker string, limit int) ([]recorder.PredictionRecord, error) {
	return s.recorder.RecentPredictions(ctx, strings.ToUpper(ticker), limit)
}

// LoadState restores the session from the state file, if any.
func (s *Service) LoadState() error {
	if s.stateFile == "" {
		return nil
	}
	st, err := session.LoadState(s.stateFile)
	if err != nil {
		return fmt.Errorf("load session state: %w", err)
	}
	s.session.Load(st)
	if snap := s.session.Snapshot(); !snap.Empty() {
		s.log.Info("session restored", zap.String("ticker", snap.Ticker), zap.Time("updated_at", snap.UpdatedAt))
	}
	return nil
}

func (s *Service) saveState() error {
	if s.stateFile == "" {
		return nil
	}
	return session.SaveState(s.stateFile, s.session.State())
}
