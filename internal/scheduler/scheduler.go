package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ForecastChart/internal/canvas"
	"ForecastChart/internal/model"
	"ForecastChart/internal/notifier"
	"ForecastChart/internal/service"
	"ForecastChart/internal/session"
)

const historyLimit = 5

// Scheduler runs forecast cycles on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Service  *service.Service
	Notifier notifier.Sender
	Tickers  []string
	Ctx      context.Context
	Log      *zap.Logger
}

// NewScheduler creates a new Scheduler. sender may be nil when chat delivery is off.
func NewScheduler(ctx context.Context, svc *service.Service, sender notifier.Sender, tickers []string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Service:  svc,
		Notifier: sender,
		Tickers:  tickers,
		Ctx:      ctx,
		Log:      logger,
	}
}

// RegisterAll registers the forecast task.
func (s *Scheduler) RegisterAll(forecastCron string) error {
	if _, err := s.Cron.AddFunc(forecastCron, s.forecastTask); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", zap.Strings("tickers", s.Tickers))
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunNow executes the forecast task immediately.
func (s *Scheduler) RunNow() {
	s.forecastTask()
}

// forecastTask runs one cycle per ticker, in order. The session keeps the last one.
func (s *Scheduler) forecastTask() {
	s.Log.Info("running forecast task", zap.Int("tickers", len(s.Tickers)))
	for _, ticker := range s.Tickers {
		if s.Ctx.Err() != nil {
			return
		}
		reply, err := s.forecast(s.Ctx, ticker)
		if errors.Is(err, session.ErrBusy) {
			s.Log.Warn("forecast skipped, session busy", zap.String("ticker", ticker))
			continue
		}
		s.deliver(reply)
	}
}

// forecast runs a prediction and renders the chart as a PNG photo reply.
func (s *Scheduler) forecast(ctx context.Context, ticker string) (notifier.Reply, error) {
	req := s.Service.NormalizeRequest(model.PredictionRequest{Ticker: ticker})
	res, err := s.Service.Predict(ctx, req)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return notifier.Reply{Text: "⏳ A prediction is already running."}, err
		}
		s.Log.Error("forecast failed", zap.String("ticker", req.Ticker), zap.Error(err))
		return notifier.Reply{Text: notifier.FormatFailure(req.Ticker, err)}, err
	}

	caption := notifier.FormatForecastReport(res.Table, res.Snapshot.UpdatedAt)
	photo, err := s.renderPNG()
	if err != nil {
		s.Log.Error("render chart", zap.Error(err))
		return notifier.Reply{Text: caption}, nil
	}
	return notifier.Reply{Text: caption, Photo: photo}, nil
}

func (s *Scheduler) renderPNG() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.Service.RenderChart(&buf, service.RenderOptions{Format: canvas.FormatPNG}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) notifier.Reply {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.Reply{Text: notifier.FormatHelp()}
	}
	// "/forecast@MyBot AAPL" in group chats
	name, _, _ := strings.Cut(fields[0], "@")
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch name {
	case "/forecast":
		reply, _ := s.forecast(ctx, arg)
		return reply
	case "/chart":
		photo, err := s.renderPNG()
		if err != nil {
			return notifier.Reply{Text: "❌ render failed"}
		}
		snap := s.Service.Session().Snapshot()
		return notifier.Reply{Text: notifier.FormatForecastReport(s.Service.Table(), snap.UpdatedAt), Photo: photo}
	case "/mode":
		if err := s.Service.SetMode(model.Mode(arg)); err != nil {
			return notifier.Reply{Text: "Usage: /mode candlestick|line"}
		}
		return notifier.Reply{Text: fmt.Sprintf("Chart mode set to %s.", arg)}
	case "/status":
		sess := s.Service.Session()
		return notifier.Reply{Text: notifier.FormatStatus(s.Service.Table(), sess.Mode(), sess.Busy(), sess.Snapshot().UpdatedAt)}
	case "/history":
		records, err := s.Service.History(ctx, arg, historyLimit)
		if err != nil {
			s.Log.Error("load history", zap.Error(err))
			return notifier.Reply{Text: "❌ history unavailable"}
		}
		return notifier.Reply{Text: notifier.FormatHistory(records)}
	default:
		return notifier.Reply{Text: notifier.FormatHelp()}
	}
}

func (s *Scheduler) deliver(reply notifier.Reply) {
	if s.Notifier == nil {
		return
	}
	var err error
	if len(reply.Photo) > 0 {
		err = s.Notifier.SendPhoto(s.Ctx, reply.Photo, reply.Text)
	} else if reply.Text != "" {
		err = s.Notifier.SendWithRetry(s.Ctx, reply.Text, 3)
	}
	if err != nil {
		s.Log.Error("send notification", zap.Error(err))
	}
}
