package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastChart/internal/display"
	"ForecastChart/internal/model"
	"ForecastChart/internal/recorder"
)

type capturedRequest struct {
	path    string
	json    map[string]string
	form    map[string]string
	photo   []byte
	rawType string
}

func newTestNotifier(t *testing.T, status int, body string) (*TelegramNotifier, *[]capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := capturedRequest{path: r.URL.Path, rawType: r.Header.Get("Content-Type")}
		switch r.URL.Path {
		case "/botTOKEN/sendMessage":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&c.json))
		case "/botTOKEN/sendPhoto":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			c.form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				c.form[k] = v[0]
			}
			f, _, err := r.FormFile("photo")
			require.NoError(t, err)
			c.photo, _ = io.ReadAll(f)
		}
		mu.Lock()
		reqs = append(reqs, c)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIBase = srv.URL
	return n, &reqs
}

func TestSend(t *testing.T) {
	n, reqs := newTestNotifier(t, http.StatusOK, `{"ok":true}`)
	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, "42", got.json["chat_id"])
	assert.Equal(t, "<b>hi</b>", got.json["text"])
	assert.Equal(t, "HTML", got.json["parse_mode"])
}

func TestSend_APIError(t *testing.T) {
	n, _ := newTestNotifier(t, http.StatusBadRequest, `{"ok":false,"description":"chat not found"}`)
	err := n.Send(context.Background(), "x")
	assert.ErrorContains(t, err, "chat not found")
}

func TestSendWithRetry_NoRetries(t *testing.T) {
	n, reqs := newTestNotifier(t, http.StatusInternalServerError, "")
	err := n.SendWithRetry(context.Background(), "x", 0)
	assert.ErrorContains(t, err, "retries exhausted")
	assert.Len(t, *reqs, 1)
}

func TestSendPhoto(t *testing.T) {
	n, reqs := newTestNotifier(t, http.StatusOK, `{"ok":true}`)
	png := []byte("\x89PNG fake")
	require.NoError(t, n.SendPhoto(context.Background(), png, "caption"))

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, "/botTOKEN/sendPhoto", got.path)
	assert.Equal(t, "42", got.form["chat_id"])
	assert.Equal(t, "caption", got.form["caption"])
	assert.Equal(t, "HTML", got.form["parse_mode"])
	assert.Equal(t, png, got.photo)
}

func TestDispatch(t *testing.T) {
	n, reqs := newTestNotifier(t, http.StatusOK, `{"ok":true}`)

	n.dispatch(context.Background(), func(_ context.Context, cmd string) Reply {
		return Reply{Text: "echo " + cmd}
	}, "/status")
	n.dispatch(context.Background(), func(_ context.Context, _ string) Reply {
		return Reply{Text: "chart", Photo: []byte{1, 2}}
	}, "/chart")
	n.dispatch(context.Background(), func(_ context.Context, _ string) Reply {
		return Reply{}
	}, "/quiet")

	require.Len(t, *reqs, 2)
	assert.Equal(t, "echo /status", (*reqs)[0].json["text"])
	assert.Equal(t, "/botTOKEN/sendPhoto", (*reqs)[1].path)
}

func TestPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /status "}}]}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIBase = srv.URL
	updates, err := n.poll(context.Background(), n.Client, 7)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, " /status ", updates[0].Message.Text)
}

func TestStartPolling_StopsOnCancel(t *testing.T) {
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(context.Context, string) Reply { return Reply{} })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
}

func TestFormatForecastReport(t *testing.T) {
	msg := FormatForecastReport(display.Table{
		Ticker: "A&B", Scenario: "baseline", Model: "lstm",
		LastClose: "101.00", DA: "61.0%", Confidence: "high",
		Rows: []display.Row{{Step: 1, Date: "2025-01-01", Price: "103.00", ChangePct: "+1.98%"}},
	}, time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC))

	assert.Contains(t, msg, "A&amp;B forecast")
	assert.Contains(t, msg, "2025-01-01 09:30 UTC")
	assert.Contains(t, msg, "DA: 61.0% | Confidence: high")
	assert.Contains(t, msg, "2025-01-01")
	assert.Contains(t, msg, "+1.98%")
}

func TestFormatForecastReport_Empty(t *testing.T) {
	msg := FormatForecastReport(display.Table{Ticker: "-", DA: "-", Confidence: "-"}, time.Time{})
	assert.Contains(t, msg, "No forecast points.")
	assert.NotContains(t, msg, "UTC")
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure("AAPL", errors.New("status <502>"))
	assert.Contains(t, msg, "AAPL")
	assert.Contains(t, msg, "status &lt;502&gt;")
}

func TestFormatStatusAndHistory(t *testing.T) {
	st := FormatStatus(display.Table{Ticker: "AAPL", DA: "-", Confidence: "-"}, model.ModeLine, true, time.Time{})
	assert.Contains(t, st, "Mode: line")
	assert.Contains(t, st, "Running: true")
	assert.Contains(t, st, "Updated: -")

	assert.Equal(t, "No predictions recorded yet.", FormatHistory(nil))
	da := 55.0
	h := FormatHistory([]recorder.PredictionRecord{{
		Ticker: "AAPL", PredPrices: []float64{103, 104.5}, DA: &da,
		CreatedAt: time.Date(2025, 3, 4, 5, 6, 0, 0, time.UTC),
	}})
	assert.Contains(t, h, "03-04 05:06 AAPL → 104.50 (DA 55.0%)")
}
