package model

// Mode selects how the historical series is drawn.
type Mode string

const (
	ModeCandlestick Mode = "candlestick"
	ModeLine        Mode = "line"
)

// Valid reports whether m is a known draw mode.
func (m Mode) Valid() bool {
	return m == ModeCandlestick || m == ModeLine
}

// HistoricalBar is a synthetic OHLC bar built from adjacent closing prices.
type HistoricalBar struct {
	Index int     `json:"index"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Bullish reports whether the bar closed at or above its open.
func (b HistoricalBar) Bullish() bool {
	return b.Close >= b.Open
}

// ForecastPoint shares its Time axis with HistoricalBar.Index.
// The first point of a forecast built on top of history is the bridge point.
type ForecastPoint struct {
	Time  int     `json:"time"`
	Price float64 `json:"price"`
}

// ViewRange is the visible price range. MaxPrice > MinPrice always holds
// for ranges produced by the range calculator.
type ViewRange struct {
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// Padding is the margin between the viewport edge and the plot area.
type Padding struct {
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
}

// Viewport is measured in device-independent pixels.
type Viewport struct {
	Width   float64
	Height  float64
	Padding Padding
}

// InnerWidth returns the plot area width.
func (v Viewport) InnerWidth() float64 {
	return v.Width - v.Padding.Left - v.Padding.Right
}

// InnerHeight returns the plot area height.
func (v Viewport) InnerHeight() float64 {
	return v.Height - v.Padding.Top - v.Padding.Bottom
}
