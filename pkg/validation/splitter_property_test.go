package validation

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: for every rolling window, the latest train date plus the purge
// gap never exceeds the earliest test date, and train always precedes test.
func TestProperty_PurgeGapNeverViolated(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("purge gap holds in every window", prop.ForAll(
		func(spanDays, trainDays, testDays, stepDays, purgeDays int) bool {
			if purgeDays >= testDays {
				return true // rejected by config validation upstream
			}
			s := NewSplitter(purgeDays)
			items := dailyCandidates(base, spanDays)

			windows, err := s.RollingWindows(items, trainDays, testDays, stepDays)
			if err != nil {
				return true // too short for one window is fine
			}
			for _, w := range windows {
				if len(w.Train) == 0 || len(w.Test) == 0 {
					continue
				}
				maxTrain := w.Train[len(w.Train)-1].CandidateDate
				minTest := w.Test[0].CandidateDate
				if maxTrain.AddDate(0, 0, purgeDays).After(minTest) {
					return false
				}
				if !maxTrain.Before(minTest) {
					return false
				}
			}
			return true
		},
		gen.IntRange(50, 600),
		gen.IntRange(10, 200),
		gen.IntRange(5, 60),
		gen.IntRange(1, 60),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
