package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"ForecastChart/internal/display"
	"ForecastChart/internal/model"
	"ForecastChart/internal/recorder"
)

// FormatForecastReport formats a forecast table as a Telegram caption.
func FormatForecastReport(t display.Table, updatedAt time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s forecast</b>", html.EscapeString(t.Ticker)))
	if !updatedAt.IsZero() {
		b.WriteString(" | " + updatedAt.UTC().Format("2006-01-02 15:04") + " UTC")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s / %s\n\n", html.EscapeString(t.Scenario), html.EscapeString(t.Model)))

	b.WriteString(fmt.Sprintf("Last close: %s\n", t.LastClose))
	b.WriteString(fmt.Sprintf("DA: %s | Confidence: %s\n\n", t.DA, t.Confidence))

	if len(t.Rows) == 0 {
		b.WriteString("No forecast points.\n")
		return b.String()
	}
	b.WriteString("<pre>")
	for _, r := range t.Rows {
		b.WriteString(fmt.Sprintf("%-10s %10s %8s\n", r.Date, r.Price, r.ChangePct))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatFailure formats an aborted prediction cycle.
func FormatFailure(ticker string, err error) string {
	return fmt.Sprintf("❌ <b>%s</b> prediction failed: %s", html.EscapeString(ticker), html.EscapeString(err.Error()))
}

// FormatStatus formats the session state.
func FormatStatus(t display.Table, mode model.Mode, busy bool, updatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("📦 <b>Session status</b>\n\n")
	b.WriteString(fmt.Sprintf("Ticker: %s\n", html.EscapeString(t.Ticker)))
	b.WriteString(fmt.Sprintf("Mode: %s\n", mode))
	b.WriteString(fmt.Sprintf("Running: %v\n", busy))
	b.WriteString(fmt.Sprintf("Horizon: %d\n", len(t.Rows)))
	b.WriteString(fmt.Sprintf("DA: %s | Confidence: %s\n", t.DA, t.Confidence))
	if updatedAt.IsZero() {
		b.WriteString("Updated: -\n")
	} else {
		b.WriteString(fmt.Sprintf("Updated: %s\n", updatedAt.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatHistory formats recorded cycles, newest first.
func FormatHistory(records []recorder.PredictionRecord) string {
	if len(records) == 0 {
		return "No predictions recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent predictions</b>\n\n")
	for _, r := range records {
		last := "-"
		if n := len(r.PredPrices); n > 0 {
			p := r.PredPrices[n-1]
			last = display.Price(&p)
		}
		b.WriteString(fmt.Sprintf("%s %s → %s (DA %s)\n",
			r.CreatedAt.UTC().Format("01-02 15:04"), html.EscapeString(r.Ticker), last, display.Percent(r.DA)))
	}
	return b.String()
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "Commands:\n" +
		"• /forecast [TICKER]: run a prediction and send the chart\n" +
		"• /chart: send the current chart\n" +
		"• /mode candlestick|line: change the chart mode\n" +
		"• /status: show the session\n" +
		"• /history [TICKER]: recent predictions"
}
