package display

import (
	"github.com/shopspring/decimal"

	"ForecastChart/internal/session"
)

// Placeholder is shown in place of a value that is missing or unusable.
const Placeholder = "-"

// Confidence thresholds on directional accuracy, in percent.
var (
	highConfidenceDA   = decimal.NewFromInt(60)
	mediumConfidenceDA = decimal.NewFromInt(50)
	hundred            = decimal.NewFromInt(100)
)

// Row is one forecast step as displayed.
type Row struct {
	Step      int    `json:"step"`
	Date      string `json:"date"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	ChangePct string `json:"change_pct"`
}

// Table is the forecast summary shown next to the chart.
type Table struct {
	Ticker     string `json:"ticker"`
	Scenario   string `json:"scenario"`
	Model      string `json:"model"`
	LastClose  string `json:"last_close"`
	DA         string `json:"da"`
	Confidence string `json:"confidence"`
	Rows       []Row  `json:"rows"`
}

// BuildTable formats a session snapshot. Every missing value becomes Placeholder.
func BuildTable(snap session.Snapshot) Table {
	t := Table{
		Ticker:     orPlaceholder(snap.Ticker),
		Scenario:   orPlaceholder(snap.Scenario),
		Model:      orPlaceholder(snap.Model),
		LastClose:  Price(snap.LastClose),
		DA:         Percent(snap.DA),
		Confidence: Confidence(snap.DA),
		Rows:       make([]Row, 0, len(snap.Predicted)),
	}
	for i, p := range snap.Predicted {
		row := Row{
			Step:      i + 1,
			Date:      Placeholder,
			Price:     Price(&p),
			Change:    Placeholder,
			ChangePct: Placeholder,
		}
		if i < len(snap.ForecastDates) {
			row.Date = snap.ForecastDates[i]
		}
		if snap.LastClose != nil {
			row.Change, row.ChangePct = change(*snap.LastClose, p)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Price formats a price with two decimals.
func Price(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

// Percent formats a percentage with one decimal.
func Percent(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return decimal.NewFromFloat(*v).StringFixed(1) + "%"
}

// Confidence labels a directional accuracy: high from 60%, medium from 50%, low below.
func Confidence(da *float64) string {
	if da == nil {
		return Placeholder
	}
	d := decimal.NewFromFloat(*da)
	switch {
	case d.GreaterThanOrEqual(highConfidenceDA):
		return "high"
	case d.GreaterThanOrEqual(mediumConfidenceDA):
		return "medium"
	default:
		return "low"
	}
}

func change(base, price float64) (string, string) {
	b := decimal.NewFromFloat(base)
	diff := decimal.NewFromFloat(price).Sub(b)
	abs := signed(diff.Round(2), 2)
	if b.IsZero() {
		return abs, Placeholder
	}
	pct := diff.Div(b).Mul(hundred).Round(2)
	return abs, signed(pct, 2) + "%"
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
