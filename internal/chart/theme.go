package chart

import (
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ForecastChart/internal/model"
)

// DefaultCandleWidth is the body width of a candle in pixels. It does not scale with
// the number of slots, so very dense series overlap.
const DefaultCandleWidth = 6.0

// DefaultPadding leaves room around the plot area.
var DefaultPadding = model.Padding{Top: 20, Right: 20, Bottom: 30, Left: 50}

// Theme holds every color and stroke the renderer uses.
type Theme struct {
	Background drawing.Color
	Grid       Stroke

	BullBody drawing.Color
	BullWick drawing.Color
	BearBody drawing.Color
	BearWick drawing.Color

	CandleWidth float64

	Line Stroke

	Forecast     Stroke
	Marker       drawing.Color
	MarkerRadius float64
}

// DefaultTheme returns the dark palette.
func DefaultTheme() Theme {
	return Theme{
		Background:   drawing.ColorFromHex("0b0f17"),
		Grid:         Stroke{Color: drawing.ColorFromHex("1f2837"), Width: 1},
		BullBody:     drawing.ColorFromHex("26a69a"),
		BullWick:     drawing.ColorFromHex("1b7f75"),
		BearBody:     drawing.ColorFromHex("ef5350"),
		BearWick:     drawing.ColorFromHex("b23c3a"),
		CandleWidth:  DefaultCandleWidth,
		Line:         Stroke{Color: drawing.ColorFromHex("59a6ff"), Width: 1.5},
		Forecast:     Stroke{Color: drawing.ColorFromHex("ffb020"), Width: 2.5},
		Marker:       drawing.ColorFromHex("ffb020"),
		MarkerRadius: 3.5,
	}
}
