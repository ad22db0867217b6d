package chart

import (
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ForecastChart/internal/model"
)

// Stroke describes how a line is drawn.
type Stroke struct {
	Color drawing.Color
	Width float64
}

// Surface is the drawing capability the renderer paints on.
// Coordinates are device-independent pixels.
type Surface interface {
	Clear(background drawing.Color)
	DrawLine(x1, y1, x2, y2 float64, stroke Stroke)
	DrawRect(x, y, width, height float64, fill drawing.Color)
	DrawCircle(cx, cy, radius float64, fill drawing.Color)
}

// Canvas is a Surface whose backing buffer follows the display size and pixel ratio.
type Canvas interface {
	Surface
	Resize(displayWidth, displayHeight, pixelRatio float64) error
	DisplaySize() (width, height float64)
}

// SeriesSource hands the renderer a consistent pair of sequences.
type SeriesSource interface {
	Series() (bars []model.HistoricalBar, forecast []model.ForecastPoint)
}

// StaticSeries is a SeriesSource over fixed slices.
type StaticSeries struct {
	Bars     []model.HistoricalBar
	Forecast []model.ForecastPoint
}

func (s StaticSeries) Series() ([]model.HistoricalBar, []model.ForecastPoint) {
	return s.Bars, s.Forecast
}
