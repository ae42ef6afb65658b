// Package indicators provides the volatility inputs of the risk layer.
package indicators

import (
	"math"

	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// DefaultATRPeriod is the conventional 14-day ATR window.
const DefaultATRPeriod = 14

// ATR computes the Average True Range over the trailing period of data.
// data must be in chronological order; the last period+1 points are used.
func ATR(data []types.PricePoint, period int) (float64, error) {
	if period < 1 {
		return 0, &engerr.InvalidConfigError{Field: "atr_period", Reason: "must be >= 1"}
	}
	if len(data) < period+1 {
		return 0, &engerr.InsufficientDataError{Segment: "atr", Count: len(data), Min: period + 1}
	}

	sum := 0.0
	for i := len(data) - period; i < len(data); i++ {
		sum += trueRange(data[i], data[i-1].Close)
	}
	return sum / float64(period), nil
}

// ATRPct returns ATR expressed as a fraction of the most recent close,
// which is the volatility unit the stop calculator consumes.
func ATRPct(data []types.PricePoint, period int) (float64, error) {
	atr, err := ATR(data, period)
	if err != nil {
		return 0, err
	}
	last := data[len(data)-1].Close
	if last <= 0 {
		return 0, &engerr.InsufficientDataError{Segment: "atr", Count: len(data), Min: period + 1}
	}
	return atr / last, nil
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(p types.PricePoint, prevClose float64) float64 {
	hl := p.High - p.Low
	hc := math.Abs(p.High - prevClose)
	lc := math.Abs(p.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}
