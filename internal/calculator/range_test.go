package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastChart/internal/model"
)

func TestCalculateViewRange_Empty(t *testing.T) {
	assert.Equal(t, model.ViewRange{MinPrice: 0, MaxPrice: 1}, CalculateViewRange(nil, nil))
}

func TestCalculateViewRange_SpanPadding(t *testing.T) {
	bars := BuildBars([]float64{100, 102, 101})
	fc := BuildForecast(bars, []float64{103, 104})

	r := CalculateViewRange(bars, fc)
	// raw 100..104, pad = max(0.32, 2.08, 1) = 2.08
	assert.InDelta(t, 97.92, r.MinPrice, 1e-9)
	assert.InDelta(t, 106.08, r.MaxPrice, 1e-9)
}

func TestCalculateViewRange_WideSpanUsesEightPercent(t *testing.T) {
	bars := BuildBars([]float64{10, 110})
	r := CalculateViewRange(bars, nil)
	// raw 10..110, pad = max(8, 2.2, 1) = 8
	assert.InDelta(t, 2, r.MinPrice, 1e-9)
	assert.InDelta(t, 118, r.MaxPrice, 1e-9)
}

func TestCalculateViewRange_FlatSeriesNeverDegenerates(t *testing.T) {
	for _, v := range []float64{0.01, 0.5, 1, 20, 49.99, 250, 10000} {
		bars := BuildBars([]float64{v, v, v})
		fc := BuildForecast(bars, []float64{v, v})
		r := CalculateViewRange(bars, fc)

		span := r.MaxPrice - r.MinPrice
		require.Greater(t, span, 0.0)
		assert.GreaterOrEqual(t, span, max(1, 0.02*v), "v=%v", v)
	}
}

func TestCalculateViewRange_ForecastOnly(t *testing.T) {
	r := CalculateViewRange(nil, []model.ForecastPoint{{Time: 0, Price: 5}})
	assert.InDelta(t, 4, r.MinPrice, 1e-9)
	assert.InDelta(t, 6, r.MaxPrice, 1e-9)
}

func TestCalculateViewRange_ForecastExtendsRange(t *testing.T) {
	bars := BuildBars([]float64{100, 101})
	fc := BuildForecast(bars, []float64{150})
	r := CalculateViewRange(bars, fc)
	assert.Less(t, r.MinPrice, 100.0)
	assert.Greater(t, r.MaxPrice, 150.0)
}

func TestPriceLevels(t *testing.T) {
	levels := PriceLevels(model.ViewRange{MinPrice: 0, MaxPrice: 8}, 9)
	require.Len(t, levels, 9)
	for i, l := range levels {
		assert.InDelta(t, float64(i), l, 1e-9)
	}
	assert.Nil(t, PriceLevels(model.ViewRange{MinPrice: 0, MaxPrice: 1}, 0))
	assert.Equal(t, []float64{3}, PriceLevels(model.ViewRange{MinPrice: 3, MaxPrice: 4}, 1))
}
