package calculator

import (
	"math"

	"ForecastChart/internal/model"
)

const (
	rangeSpanPadRatio = 0.08
	rangeMaxPadRatio  = 0.02
	rangeMinPad       = 1.0
)

// DefaultViewRange is used when there is nothing to show.
var DefaultViewRange = model.ViewRange{MinPrice: 0, MaxPrice: 1}

// CalculateViewRange derives the visible price range from every bar's low and high
// and every forecast price. The padding is 8% of the raw span, floored by 2% of the
// raw max and then by one absolute unit, so a flat series never collapses.
func CalculateViewRange(bars []model.HistoricalBar, forecast []model.ForecastPoint) model.ViewRange {
	if len(bars) == 0 && len(forecast) == 0 {
		return DefaultViewRange
	}

	rawMin := math.Inf(1)
	rawMax := math.Inf(-1)
	for _, b := range bars {
		rawMin = math.Min(rawMin, b.Low)
		rawMax = math.Max(rawMax, b.High)
	}
	for _, p := range forecast {
		rawMin = math.Min(rawMin, p.Price)
		rawMax = math.Max(rawMax, p.Price)
	}

	pad := math.Max(rangeSpanPadRatio*(rawMax-rawMin), math.Max(rangeMaxPadRatio*rawMax, rangeMinPad))
	return model.ViewRange{
		MinPrice: rawMin - pad,
		MaxPrice: rawMax + pad,
	}
}

// PriceLevels returns n evenly spaced prices from r.MinPrice to r.MaxPrice inclusive.
func PriceLevels(r model.ViewRange, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{r.MinPrice}
	}
	levels := make([]float64, n)
	step := (r.MaxPrice - r.MinPrice) / float64(n-1)
	for i := range levels {
		levels[i] = r.MinPrice + step*float64(i)
	}
	return levels
}
