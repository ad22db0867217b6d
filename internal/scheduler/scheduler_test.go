package scheduler

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastChart/internal/collector"
	"ForecastChart/internal/config"
	"ForecastChart/internal/model"
	"ForecastChart/internal/recorder"
	"ForecastChart/internal/service"
	"ForecastChart/internal/session"
)

type fakeSender struct {
	mu     sync.Mutex
	texts  []string
	photos []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, photo []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !bytes.HasPrefix(photo, []byte("\x89PNG")) {
		panic("not a png")
	}
	f.photos = append(f.photos, caption)
	return nil
}

func newTestScheduler(t *testing.T, p collector.Predictor, tickers ...string) (*Scheduler, *fakeSender) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Session.StateFile = ""
	cfg.Chart.Width = 120
	cfg.Chart.Height = 80

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "h.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	svc := service.New(cfg, collector.NewCollector(p, nil, 0), session.New(model.ModeCandlestick), rec, nil)
	sender := &fakeSender{}
	return NewScheduler(context.Background(), svc, sender, tickers, nil), sender
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockPredictor{})
	require.NoError(t, s.RegisterAll("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a cron"))
}

func TestRunNow_SendsChartPerTicker(t *testing.T) {
	s, sender := newTestScheduler(t, &collector.MockPredictor{}, "AAPL", "MSFT")
	s.RunNow()

	require.Len(t, sender.photos, 2)
	assert.Contains(t, sender.photos[0], "AAPL forecast")
	assert.Contains(t, sender.photos[1], "MSFT forecast")
	assert.Equal(t, "MSFT", s.Service.Session().Snapshot().Ticker)
}

func TestRunNow_FailureIsReported(t *testing.T) {
	s, sender := newTestScheduler(t, &collector.MockPredictor{
		RecentErr: &collector.APIError{Op: "fetch recent", StatusCode: 500, Message: "boom"},
	}, "AAPL")
	s.RunNow()

	assert.Empty(t, sender.photos)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "AAPL</b> prediction failed")
}

func TestRunNow_SkipsWhenBusy(t *testing.T) {
	s, sender := newTestScheduler(t, &collector.MockPredictor{}, "AAPL")
	require.NoError(t, s.Service.Session().TryBegin())
	defer s.Service.Session().End()

	s.RunNow()
	assert.Empty(t, sender.photos)
	assert.Empty(t, sender.texts)
}

func TestHandleCommand(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockPredictor{})
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/forecast tsla")
	assert.NotEmpty(t, reply.Photo)
	assert.Contains(t, reply.Text, "TSLA forecast")

	reply = s.HandleCommand(ctx, "/mode line")
	assert.Equal(t, "Chart mode set to line.", reply.Text)
	assert.Equal(t, model.ModeLine, s.Service.Session().Mode())

	reply = s.HandleCommand(ctx, "/mode area")
	assert.Contains(t, reply.Text, "Usage")

	reply = s.HandleCommand(ctx, "/status@ForecastBot")
	assert.Contains(t, reply.Text, "Mode: line")

	reply = s.HandleCommand(ctx, "/chart")
	assert.NotEmpty(t, reply.Photo)

	reply = s.HandleCommand(ctx, "/history TSLA")
	assert.Contains(t, reply.Text, "TSLA")

	reply = s.HandleCommand(ctx, "hello")
	assert.Contains(t, reply.Text, "Commands:")
}
