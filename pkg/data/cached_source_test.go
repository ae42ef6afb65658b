package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// countingSource counts how often the underlying source is consulted.
type countingSource struct {
	calls  int
	points map[cacheKey]types.PricePoint
}

func (s *countingSource) GetPrice(symbol string, date time.Time) (types.PricePoint, bool) {
	s.calls++
	p, ok := s.points[cacheKey{symbol, date.Format("2006-01-02")}]
	return p, ok
}

// TestCachedSource_MemoizesHits tests single consultation per (symbol, date)
func TestCachedSource_MemoizesHits(t *testing.T) {
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	underlying := &countingSource{points: map[cacheKey]types.PricePoint{
		{"005930", "2025-01-06"}: {Symbol: "005930", Date: day, Close: 70_000},
	}}
	src := NewCachedSource(underlying)

	for i := 0; i < 5; i++ {
		p, ok := src.GetPrice("005930", day)
		assert.True(t, ok)
		assert.Equal(t, 70_000.0, p.Close)
	}

	assert.Equal(t, 1, underlying.calls)
	assert.Equal(t, 1, src.CacheSize())
}

// TestCachedSource_MemoizesMisses tests that missing days are asked once
func TestCachedSource_MemoizesMisses(t *testing.T) {
	day := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	underlying := &countingSource{points: map[cacheKey]types.PricePoint{}}
	src := NewCachedSource(underlying)

	for i := 0; i < 5; i++ {
		_, ok := src.GetPrice("005930", day)
		assert.False(t, ok)
	}

	assert.Equal(t, 1, underlying.calls)
}

// TestCachedSource_DistinctKeys tests that symbols and dates do not collide
func TestCachedSource_DistinctKeys(t *testing.T) {
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	underlying := &countingSource{points: map[cacheKey]types.PricePoint{
		{"005930", "2025-01-06"}: {Close: 70_000},
		{"000660", "2025-01-06"}: {Close: 180_000},
		{"005930", "2025-01-07"}: {Close: 71_000},
	}}
	src := NewCachedSource(underlying)

	a, _ := src.GetPrice("005930", day)
	b, _ := src.GetPrice("000660", day)
	c, _ := src.GetPrice("005930", day.AddDate(0, 0, 1))

	assert.Equal(t, 70_000.0, a.Close)
	assert.Equal(t, 180_000.0, b.Close)
	assert.Equal(t, 71_000.0, c.Close)
	assert.Equal(t, 3, underlying.calls)
	assert.Equal(t, 3, src.CacheSize())
}
