package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// flatSeries builds n chronological points with the same daily range.
func flatSeries(n int, high, low, close float64) []types.PricePoint {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]types.PricePoint, n)
	for i := range points {
		points[i] = types.PricePoint{
			Symbol: "005930",
			Date:   base.AddDate(0, 0, i),
			Open:   close,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: 1_000_000,
		}
	}
	return points
}

// TestATR_ConstantRange tests ATR on a series with a constant true range
func TestATR_ConstantRange(t *testing.T) {
	// every day: high-low = 4, close inside the range, so TR = 4
	data := flatSeries(15, 102, 98, 100)

	atr, err := ATR(data, 14)
	assert.NoError(t, err)
	assert.InDelta(t, 4.0, atr, 1e-9)
}

// TestATR_GapDominatesRange tests that a gap versus the previous close widens TR
func TestATR_GapDominatesRange(t *testing.T) {
	data := flatSeries(3, 102, 98, 100)
	// gap down: previous close 100, today trades 90-92
	data[2].High = 92
	data[2].Low = 90
	data[2].Close = 91

	atr, err := ATR(data, 2)
	assert.NoError(t, err)
	// TR day1 = 4, TR day2 = |90-100| = 10
	assert.InDelta(t, 7.0, atr, 1e-9)
}

// TestATRPct tests the close-relative volatility fraction
func TestATRPct(t *testing.T) {
	data := flatSeries(15, 102, 98, 100)

	atrPct, err := ATRPct(data, 14)
	assert.NoError(t, err)
	assert.InDelta(t, 0.04, atrPct, 1e-9)
}

// TestATR_InsufficientData tests the error for short histories
func TestATR_InsufficientData(t *testing.T) {
	data := flatSeries(10, 102, 98, 100)

	_, err := ATR(data, 14)
	var dataErr *engerr.InsufficientDataError
	assert.ErrorAs(t, err, &dataErr)
	assert.Equal(t, 10, dataErr.Count)
	assert.Equal(t, 15, dataErr.Min)
}

// TestATR_InvalidPeriod tests rejection of a non-positive period
func TestATR_InvalidPeriod(t *testing.T) {
	data := flatSeries(15, 102, 98, 100)

	_, err := ATR(data, 0)
	var cfgErr *engerr.InvalidConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
