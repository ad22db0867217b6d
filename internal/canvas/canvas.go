package canvas

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ForecastChart/internal/chart"
)

// Format is the encoding of a painted frame.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// circleSegments approximates marker circles with a polygon so PNG and SVG output match.
const circleSegments = 24

// ErrNothingPainted is returned by Encode before the first Clear.
var ErrNothingPainted = errors.New("canvas: nothing painted")

// ParseFormat validates a format name. An empty name means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Canvas is a go-chart backed drawing surface. Callers draw in display pixels; the
// canvas scales them into a backing buffer of displaySize*pixelRatio.
type Canvas struct {
	format Format

	displayWidth  float64
	displayHeight float64
	pixelRatio    float64
	bufferWidth   int
	bufferHeight  int

	// scale is the current transform. It is reset before every resize so repeated
	// resizes never compound.
	scale float64

	r gochart.Renderer
}

var _ chart.Canvas = (*Canvas)(nil)

// New creates an unsized canvas. Resize must be called before drawing.
func New(format Format) *Canvas {
	if format == "" {
		format = FormatPNG
	}
	return &Canvas{format: format, scale: 1}
}

// Format returns the output encoding.
func (c *Canvas) Format() Format { return c.format }

// SetFormat changes the output encoding; it takes effect at the next Clear.
func (c *Canvas) SetFormat(f Format) {
	if f == "" {
		f = FormatPNG
	}
	c.format = f
}

// Resize recomputes the backing buffer for a display size and pixel ratio.
func (c *Canvas) Resize(displayWidth, displayHeight, pixelRatio float64) error {
	if displayWidth <= 0 || displayHeight <= 0 {
		return fmt.Errorf("invalid display size %.0fx%.0f", displayWidth, displayHeight)
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	c.displayWidth = displayWidth
	c.displayHeight = displayHeight
	c.pixelRatio = pixelRatio
	c.bufferWidth = int(math.Round(displayWidth * pixelRatio))
	c.bufferHeight = int(math.Round(displayHeight * pixelRatio))

	c.resetTransform()
	c.scale = pixelRatio

	// the old renderer has the old buffer size
	c.r = nil
	return nil
}

func (c *Canvas) resetTransform() { c.scale = 1 }

// DisplaySize returns the size callers draw in.
func (c *Canvas) DisplaySize() (float64, float64) { return c.displayWidth, c.displayHeight }

// BufferSize returns the backing pixel buffer size.
func (c *Canvas) BufferSize() (int, int) { return c.bufferWidth, c.bufferHeight }

// Scale returns the current display-to-buffer transform.
func (c *Canvas) Scale() float64 { return c.scale }

// PixelRatio returns the ratio given to the last Resize.
func (c *Canvas) PixelRatio() float64 { return c.pixelRatio }

// Clear starts a new frame filled with background.
func (c *Canvas) Clear(background drawing.Color) {
	if c.bufferWidth <= 0 || c.bufferHeight <= 0 {
		return
	}
	provider := gochart.PNG
	if c.format == FormatSVG {
		provider = gochart.SVG
	}
	r, err := provider(c.bufferWidth, c.bufferHeight)
	if err != nil {
		c.r = nil
		return
	}
	c.r = r
	c.fillPolygon(background, [][2]float64{
		{0, 0},
		{c.displayWidth, 0},
		{c.displayWidth, c.displayHeight},
		{0, c.displayHeight},
	})
}

// DrawLine strokes a straight segment.
func (c *Canvas) DrawLine(x1, y1, x2, y2 float64, stroke chart.Stroke) {
	if c.r == nil {
		return
	}
	c.r.SetStrokeColor(stroke.Color)
	c.r.SetStrokeWidth(stroke.Width * c.scale)
	c.r.MoveTo(c.px(x1), c.px(y1))
	c.r.LineTo(c.px(x2), c.px(y2))
	c.r.Stroke()
}

// DrawRect fills an axis-aligned rectangle.
func (c *Canvas) DrawRect(x, y, width, height float64, fill drawing.Color) {
	c.fillPolygon(fill, [][2]float64{
		{x, y},
		{x + width, y},
		{x + width, y + height},
		{x, y + height},
	})
}

// DrawCircle fills a circle.
func (c *Canvas) DrawCircle(cx, cy, radius float64, fill drawing.Color) {
	pts := make([][2]float64, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = [2]float64{cx + radius*math.Cos(a), cy + radius*math.Sin(a)}
	}
	c.fillPolygon(fill, pts)
}

func (c *Canvas) fillPolygon(fill drawing.Color, pts [][2]float64) {
	if c.r == nil || len(pts) == 0 {
		return
	}
	c.r.SetFillColor(fill)
	c.r.MoveTo(c.px(pts[0][0]), c.px(pts[0][1]))
	for _, p := range pts[1:] {
		c.r.LineTo(c.px(p[0]), c.px(p[1]))
	}
	c.r.Close()
	c.r.Fill()
}

func (c *Canvas) px(v float64) int {
	return int(math.Round(v * c.scale))
}

// Encode writes the painted frame in the canvas format.
func (c *Canvas) Encode(w io.Writer) error {
	if c.r == nil {
		return ErrNothingPainted
	}
	if err := c.r.Save(w); err != nil {
		return fmt.Errorf("encode %s: %w", c.format, err)
	}
	return nil
}
