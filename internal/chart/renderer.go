package chart

import (
	"errors"
	"fmt"
	"math"

	"ForecastChart/internal/calculator"
	"ForecastChart/internal/model"
)

const (
	gridLevels        = 9
	targetGridColumns = 10
	minTotalPoints    = 2
	minCandleBodyPx   = 1.0
	minForecastPoints = 2
)

var (
	// ErrInvalidMode is returned by SetMode for an unknown mode.
	ErrInvalidMode = errors.New("invalid chart mode")
	// ErrCanvasNotReady is returned by Render before SetupCanvas succeeded.
	ErrCanvasNotReady = errors.New("canvas not set up")
)

// Frame summarizes one painted frame.
type Frame struct {
	Mode          model.Mode
	Range         model.ViewRange
	TotalPoints   int
	Bars          int
	ForecastDrawn bool
}

// Renderer paints historical bars and a forecast onto a Canvas.
// It keeps no state between frames besides the viewport and the draw mode.
type Renderer struct {
	canvas   Canvas
	source   SeriesSource
	theme    Theme
	padding  model.Padding
	mode     model.Mode
	viewport model.Viewport
}

// NewRenderer creates a renderer reading its data from source on every Render.
func NewRenderer(canvas Canvas, source SeriesSource, theme Theme, padding model.Padding) *Renderer {
	return &Renderer{
		canvas:  canvas,
		source:  source,
		theme:   theme,
		padding: padding,
		mode:    model.ModeCandlestick,
	}
}

// SetMode selects how the historical series is drawn.
func (r *Renderer) SetMode(mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	r.mode = mode
	return nil
}

// Mode returns the current draw mode.
func (r *Renderer) Mode() model.Mode { return r.mode }

// Viewport returns the viewport of the last successful SetupCanvas.
func (r *Renderer) Viewport() model.Viewport { return r.viewport }

// SetupCanvas resizes the canvas for the given display size and pixel ratio and
// recomputes the viewport. Call it once before the first Render and on every resize.
func (r *Renderer) SetupCanvas(displayWidth, displayHeight, pixelRatio float64) error {
	if err := r.canvas.Resize(displayWidth, displayHeight, pixelRatio); err != nil {
		return fmt.Errorf("resize canvas: %w", err)
	}
	w, h := r.canvas.DisplaySize()
	r.viewport = model.Viewport{Width: w, Height: h, Padding: r.padding}
	return nil
}

// Render paints one frame from the current series.
func (r *Renderer) Render() (Frame, error) {
	vp := r.viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		return Frame{}, ErrCanvasNotReady
	}

	bars, forecast := r.source.Series()
	vr := calculator.CalculateViewRange(bars, forecast)

	r.canvas.Clear(r.theme.Background)

	total := max(calculator.TotalPoints(bars, forecast), minTotalPoints)
	span := total - 1

	r.drawGrid(vr, total, span)

	switch r.mode {
	case model.ModeLine:
		r.drawLine(bars, vr, span)
	default:
		r.drawCandles(bars, vr, span)
	}

	drawn := r.drawForecast(forecast, vr, span)

	return Frame{
		Mode:          r.mode,
		Range:         vr,
		TotalPoints:   total,
		Bars:          len(bars),
		ForecastDrawn: drawn,
	}, nil
}

// GridColumnStep is the slot distance between vertical grid lines.
func GridColumnStep(totalPoints int) int {
	return max(1, totalPoints/targetGridColumns)
}

func (r *Renderer) drawGrid(vr model.ViewRange, total, span int) {
	vp := r.viewport
	left := vp.Padding.Left
	right := vp.Width - vp.Padding.Right
	top := vp.Padding.Top
	bottom := vp.Height - vp.Padding.Bottom

	for _, level := range calculator.PriceLevels(vr, gridLevels) {
		y := PriceToVertical(level, vr, vp)
		r.canvas.DrawLine(left, y, right, y, r.theme.Grid)
	}

	step := GridColumnStep(total)
	for i := 0; i < total; i += step {
		x := TimeToHorizontal(i, span, vp)
		r.canvas.DrawLine(x, top, x, bottom, r.theme.Grid)
	}
}

func (r *Renderer) drawCandles(bars []model.HistoricalBar, vr model.ViewRange, span int) {
	vp := r.viewport
	width := r.theme.CandleWidth
	for _, b := range bars {
		x := TimeToHorizontal(b.Index, span, vp)
		yOpen := PriceToVertical(b.Open, vr, vp)
		yClose := PriceToVertical(b.Close, vr, vp)
		yHigh := PriceToVertical(b.High, vr, vp)
		yLow := PriceToVertical(b.Low, vr, vp)

		body, wick := r.theme.BearBody, r.theme.BearWick
		if b.Bullish() {
			body, wick = r.theme.BullBody, r.theme.BullWick
		}

		r.canvas.DrawLine(x, yHigh, x, yLow, Stroke{Color: wick, Width: 1})

		top := math.Min(yOpen, yClose)
		height := math.Max(minCandleBodyPx, math.Abs(yClose-yOpen))
		r.canvas.DrawRect(x-width/2, top, width, height, body)
	}
}

func (r *Renderer) drawLine(bars []model.HistoricalBar, vr model.ViewRange, span int) {
	vp := r.viewport
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		r.canvas.DrawLine(
			TimeToHorizontal(prev.Index, span, vp), PriceToVertical(prev.Close, vr, vp),
			TimeToHorizontal(cur.Index, span, vp), PriceToVertical(cur.Close, vr, vp),
			r.theme.Line,
		)
	}
}

// drawForecast draws the forecast line and its markers when there is at least the
// bridge point plus one predicted point.
func (r *Renderer) drawForecast(points []model.ForecastPoint, vr model.ViewRange, span int) bool {
	if len(points) < minForecastPoints {
		return false
	}
	vp := r.viewport
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		r.canvas.DrawLine(
			TimeToHorizontal(prev.Time, span, vp), PriceToVertical(prev.Price, vr, vp),
			TimeToHorizontal(cur.Time, span, vp), PriceToVertical(cur.Price, vr, vp),
			r.theme.Forecast,
		)
	}
	for _, p := range points {
		r.canvas.DrawCircle(
			TimeToHorizontal(p.Time, span, vp), PriceToVertical(p.Price, vr, vp),
			r.theme.MarkerRadius, r.theme.Marker,
		)
	}
	return true
}
