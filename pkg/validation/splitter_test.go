package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// dailyCandidates builds one candidate per calendar day starting at base.
func dailyCandidates(base time.Time, days int) []types.Candidate {
	out := make([]types.Candidate, days)
	for i := range out {
		out[i] = types.Candidate{
			Symbol:           "005930",
			CandidateDate:    base.AddDate(0, 0, i),
			EntryPrice:       70_000,
			SignalConfidence: 0.7,
		}
	}
	return out
}

var splitBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// TestSplitByFraction tests the fractional split with the purge gap dropped
// from the test side
func TestSplitByFraction(t *testing.T) {
	s := NewSplitter(5)
	items := dailyCandidates(splitBase, 100)

	train, test, err := s.SplitByFraction(items, 0.7)
	assert.NoError(t, err)
	assert.Len(t, train, 70)

	boundary := train[len(train)-1].CandidateDate
	for _, c := range test {
		assert.True(t, c.CandidateDate.Sub(boundary) >= 5*24*time.Hour,
			"test candidate %s inside purge gap after %s", c.CandidateDate, boundary)
	}
	// days 70..73 purged, 74..99 remain
	assert.Len(t, test, 26)
}

// TestSplitByFraction_Errors tests degenerate fractions and empty sides
func TestSplitByFraction_Errors(t *testing.T) {
	s := NewSplitter(5)
	items := dailyCandidates(splitBase, 10)

	var cfgErr *engerr.InvalidConfigError
	_, _, err := s.SplitByFraction(items, 0)
	assert.ErrorAs(t, err, &cfgErr)
	_, _, err = s.SplitByFraction(items, 1)
	assert.ErrorAs(t, err, &cfgErr)

	var dataErr *engerr.InsufficientDataError
	_, _, err = s.SplitByFraction(items[:1], 0.5)
	assert.ErrorAs(t, err, &dataErr)

	// purge gap swallows the whole test side
	_, _, err = NewSplitter(10).SplitByFraction(items, 0.7)
	assert.ErrorAs(t, err, &dataErr)
}

// TestRollingWindows_DocumentedLayout tests the documented example: 400 days
// of candidates with 180-day train, 30-day test, 5-day step yields
// floor((400-180-30)/5)+1 = 39 windows; with a 30-day step it yields 7
func TestRollingWindows_DocumentedLayout(t *testing.T) {
	s := NewSplitter(5)
	items := dailyCandidates(splitBase, 400)

	windows, err := s.RollingWindows(items, 180, 30, 30)
	assert.NoError(t, err)
	assert.Len(t, windows, 7)

	fine, err := s.RollingWindows(items, 180, 30, 5)
	assert.NoError(t, err)
	assert.Len(t, fine, 39)
}

// TestRollingWindows_Bounds tests window bounds and purge semantics
func TestRollingWindows_Bounds(t *testing.T) {
	s := NewSplitter(5)
	items := dailyCandidates(splitBase, 400)

	windows, err := s.RollingWindows(items, 180, 30, 30)
	assert.NoError(t, err)

	for i, w := range windows {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, splitBase.AddDate(0, 0, i*30), w.TrainStart)
		assert.Equal(t, w.TrainStart.AddDate(0, 0, 180), w.TrainEnd)
		assert.Equal(t, w.TrainEnd.AddDate(0, 0, 5), w.TestStart)
		assert.Equal(t, w.TrainEnd.AddDate(0, 0, 30), w.TestEnd)

		assert.NotEmpty(t, w.Train)
		assert.NotEmpty(t, w.Test)

		maxTrain := w.Train[len(w.Train)-1].CandidateDate
		minTest := w.Test[0].CandidateDate
		assert.True(t, minTest.Sub(maxTrain) >= 5*24*time.Hour,
			"window %d: purge gap violated (%s vs %s)", i, maxTrain, minTest)
	}
}

// TestRollingWindows_Errors tests bad parameters and spans too short for a
// single window
func TestRollingWindows_Errors(t *testing.T) {
	s := NewSplitter(5)
	items := dailyCandidates(splitBase, 400)

	var cfgErr *engerr.InvalidConfigError
	_, err := s.RollingWindows(items, 0, 30, 30)
	assert.ErrorAs(t, err, &cfgErr)

	var dataErr *engerr.InsufficientDataError
	_, err = s.RollingWindows(nil, 180, 30, 30)
	assert.ErrorAs(t, err, &dataErr)

	_, err = s.RollingWindows(dailyCandidates(splitBase, 100), 180, 30, 30)
	assert.ErrorAs(t, err, &dataErr)
}
