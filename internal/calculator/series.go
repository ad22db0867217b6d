package calculator

import (
	"math"

	"ForecastChart/internal/model"
)

// BuildBars synthesizes OHLC bars from closing prices. Only closes exist upstream,
// so each bar opens at the previous close and its high/low are the max/min of open
// and close.
func BuildBars(closes []float64) []model.HistoricalBar {
	bars := make([]model.HistoricalBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = model.HistoricalBar{
			Index: i,
			Open:  open,
			High:  math.Max(open, c),
			Low:   math.Min(open, c),
			Close: c,
		}
	}
	return bars
}

// BuildForecast lays predicted prices out after the last bar. When bars exist the
// first point is a bridge anchored on the last close so the forecast line joins the
// history; without bars the points start at time 0 and no bridge is emitted.
func BuildForecast(bars []model.HistoricalBar, predicted []float64) []model.ForecastPoint {
	if len(bars) == 0 {
		points := make([]model.ForecastPoint, len(predicted))
		for i, p := range predicted {
			points[i] = model.ForecastPoint{Time: i, Price: p}
		}
		return points
	}

	lastIdx := len(bars) - 1
	points := make([]model.ForecastPoint, 0, len(predicted)+1)
	points = append(points, model.ForecastPoint{Time: lastIdx, Price: bars[lastIdx].Close})
	for k, p := range predicted {
		points = append(points, model.ForecastPoint{Time: lastIdx + k + 1, Price: p})
	}
	return points
}

// TotalPoints is the number of time slots needed to show both series:
// max(len(bars), maxForecastTime+1).
func TotalPoints(bars []model.HistoricalBar, forecast []model.ForecastPoint) int {
	total := len(bars)
	for _, p := range forecast {
		if p.Time+1 > total {
			total = p.Time + 1
		}
	}
	return total
}

// ExtractCloses returns the close of every bar.
func ExtractCloses(bars []model.HistoricalBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
