package chart

import "ForecastChart/internal/model"

// PriceToVertical maps a price to a Y pixel inside the viewport. Higher prices map
// to smaller Y. A zero-width range is treated as a range of 1.
func PriceToVertical(price float64, r model.ViewRange, vp model.Viewport) float64 {
	span := r.MaxPrice - r.MinPrice
	if span == 0 {
		span = 1
	}
	return vp.Padding.Top + vp.InnerHeight()*(1-(price-r.MinPrice)/span)
}

// TimeToHorizontal maps a time slot to an X pixel. span is totalPoints-1 so that
// forecast slots past the history still land inside the viewport.
func TimeToHorizontal(index, span int, vp model.Viewport) float64 {
	if span < 1 {
		span = 1
	}
	return vp.Padding.Left + float64(index)/float64(span)*vp.InnerWidth()
}
