package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ForecastChart/internal/calculator"
	"ForecastChart/internal/model"
)

type drawOp struct {
	kind           string
	x1, y1, x2, y2 float64
	color          drawing.Color
	width          float64
}

// recordingCanvas captures draw calls instead of rasterizing them.
type recordingCanvas struct {
	width, height, ratio float64
	clears               int
	ops                  []drawOp
}

func (c *recordingCanvas) Resize(w, h, ratio float64) error {
	c.width, c.height, c.ratio = w, h, ratio
	return nil
}

func (c *recordingCanvas) DisplaySize() (float64, float64) { return c.width, c.height }

func (c *recordingCanvas) Clear(bg drawing.Color) {
	c.clears++
	c.ops = c.ops[:0]
}

func (c *recordingCanvas) DrawLine(x1, y1, x2, y2 float64, s Stroke) {
	c.ops = append(c.ops, drawOp{kind: "line", x1: x1, y1: y1, x2: x2, y2: y2, color: s.Color, width: s.Width})
}

func (c *recordingCanvas) DrawRect(x, y, w, h float64, fill drawing.Color) {
	c.ops = append(c.ops, drawOp{kind: "rect", x1: x, y1: y, x2: w, y2: h, color: fill})
}

func (c *recordingCanvas) DrawCircle(cx, cy, r float64, fill drawing.Color) {
	c.ops = append(c.ops, drawOp{kind: "circle", x1: cx, y1: cy, x2: r, color: fill})
}

func (c *recordingCanvas) count(kind string, color drawing.Color) int {
	n := 0
	for _, op := range c.ops {
		if op.kind == kind && op.color == color {
			n++
		}
	}
	return n
}

func (c *recordingCanvas) byKind(kind string) []drawOp {
	var out []drawOp
	for _, op := range c.ops {
		if op.kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func newTestRenderer(t *testing.T, src SeriesSource) (*Renderer, *recordingCanvas) {
	t.Helper()
	c := &recordingCanvas{}
	r := NewRenderer(c, src, DefaultTheme(), testViewport.Padding)
	require.NoError(t, r.SetupCanvas(testViewport.Width, testViewport.Height, 2))
	return r, c
}

func scenarioSeries() StaticSeries {
	bars := calculator.BuildBars([]float64{100, 102, 101})
	return StaticSeries{Bars: bars, Forecast: calculator.BuildForecast(bars, []float64{103, 104})}
}

func TestRender_EmptyDataDrawsDefaultGrid(t *testing.T) {
	r, c := newTestRenderer(t, StaticSeries{})
	theme := DefaultTheme()

	frame, err := r.Render()
	require.NoError(t, err)

	assert.Equal(t, model.ViewRange{MinPrice: 0, MaxPrice: 1}, frame.Range)
	assert.Equal(t, 2, frame.TotalPoints)
	assert.False(t, frame.ForecastDrawn)
	assert.Equal(t, 1, c.clears)

	assert.Equal(t, gridLevels+2, c.count("line", theme.Grid.Color))
	assert.Len(t, c.byKind("line"), gridLevels+2)
	assert.Empty(t, c.byKind("rect"))
	assert.Empty(t, c.byKind("circle"))
}

func TestRender_CandlestickScenario(t *testing.T) {
	r, c := newTestRenderer(t, scenarioSeries())
	theme := DefaultTheme()

	frame, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, 5, frame.TotalPoints)
	assert.Equal(t, 3, frame.Bars)
	assert.True(t, frame.ForecastDrawn)

	// 9 price levels + 5 slot columns
	assert.Equal(t, 14, c.count("line", theme.Grid.Color))

	rects := c.byKind("rect")
	require.Len(t, rects, 3)
	assert.Equal(t, theme.BullBody, rects[0].color)
	assert.Equal(t, theme.BullBody, rects[1].color)
	assert.Equal(t, theme.BearBody, rects[2].color)
	assert.Equal(t, 2, c.count("line", theme.BullWick))
	assert.Equal(t, 1, c.count("line", theme.BearWick))

	// flat first bar still shows a 1px body
	assert.InDelta(t, 1.0, rects[0].y2, 1e-9)
	for _, rc := range rects {
		assert.InDelta(t, theme.CandleWidth, rc.x2, 1e-9)
	}

	assert.Equal(t, 2, c.count("line", theme.Forecast.Color))
	assert.Len(t, c.byKind("circle"), 3)
}

func TestRender_ForecastStartsAtLastCandle(t *testing.T) {
	r, c := newTestRenderer(t, scenarioSeries())
	_, err := r.Render()
	require.NoError(t, err)

	rects := c.byKind("rect")
	circles := c.byKind("circle")
	require.NotEmpty(t, circles)

	lastCandleCenter := rects[2].x1 + rects[2].x2/2
	assert.InDelta(t, lastCandleCenter, circles[0].x1, 1e-9)
	// bridge sits on the last close
	vr := calculator.CalculateViewRange(scenarioSeries().Series())
	assert.InDelta(t, PriceToVertical(101, vr, r.Viewport()), circles[0].y1, 1e-9)
	// last forecast point is on the right edge of the plot area
	vp := r.Viewport()
	assert.InDelta(t, vp.Padding.Left+vp.InnerWidth(), circles[2].x1, 1e-9)
}

func TestRender_LineMode(t *testing.T) {
	r, c := newTestRenderer(t, scenarioSeries())
	theme := DefaultTheme()
	require.NoError(t, r.SetMode(model.ModeLine))

	frame, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, model.ModeLine, frame.Mode)

	assert.Empty(t, c.byKind("rect"))
	assert.Equal(t, 2, c.count("line", theme.Line.Color))
	// forecast is drawn regardless of mode
	assert.Equal(t, 2, c.count("line", theme.Forecast.Color))
	assert.Len(t, c.byKind("circle"), 3)
}

func TestRender_BridgeOnlyForecastNotDrawn(t *testing.T) {
	bars := calculator.BuildBars([]float64{5, 6, 7})
	r, c := newTestRenderer(t, StaticSeries{Bars: bars, Forecast: calculator.BuildForecast(bars, nil)})

	frame, err := r.Render()
	require.NoError(t, err)
	assert.False(t, frame.ForecastDrawn)
	assert.Empty(t, c.byKind("circle"))
	assert.Zero(t, c.count("line", DefaultTheme().Forecast.Color))
}

func TestRender_DenseSeriesThinsGridColumns(t *testing.T) {
	closes := make([]float64, 95)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	bars := calculator.BuildBars(closes)
	r, c := newTestRenderer(t, StaticSeries{Bars: bars, Forecast: calculator.BuildForecast(bars, []float64{1, 2, 3, 4, 5})})

	frame, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, 100, frame.TotalPoints)
	assert.Equal(t, 10, GridColumnStep(frame.TotalPoints))
	assert.Equal(t, gridLevels+10, c.count("line", DefaultTheme().Grid.Color))
}

func TestRender_RepaintClearsPreviousFrame(t *testing.T) {
	r, c := newTestRenderer(t, scenarioSeries())
	_, err := r.Render()
	require.NoError(t, err)
	first := len(c.ops)

	_, err = r.Render()
	require.NoError(t, err)
	assert.Equal(t, 2, c.clears)
	assert.Len(t, c.ops, first)
}

func TestRender_RequiresSetup(t *testing.T) {
	r := NewRenderer(&recordingCanvas{}, StaticSeries{}, DefaultTheme(), DefaultPadding)
	_, err := r.Render()
	assert.ErrorIs(t, err, ErrCanvasNotReady)
}

func TestSetMode_Invalid(t *testing.T) {
	r := NewRenderer(&recordingCanvas{}, StaticSeries{}, DefaultTheme(), DefaultPadding)
	err := r.SetMode("area")
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, model.ModeCandlestick, r.Mode())
}

func TestSetupCanvas_TracksDisplaySize(t *testing.T) {
	c := &recordingCanvas{}
	r := NewRenderer(c, StaticSeries{}, DefaultTheme(), DefaultPadding)
	require.NoError(t, r.SetupCanvas(640, 360, 3))
	assert.Equal(t, 640.0, r.Viewport().Width)
	assert.Equal(t, 360.0, r.Viewport().Height)
	assert.Equal(t, DefaultPadding, r.Viewport().Padding)
	assert.Equal(t, 3.0, c.ratio)
}

func TestGridColumnStep(t *testing.T) {
	assert.Equal(t, 1, GridColumnStep(2))
	assert.Equal(t, 1, GridColumnStep(19))
	assert.Equal(t, 2, GridColumnStep(20))
	assert.Equal(t, 3, GridColumnStep(35))
}
