// Package validation provides leakage-protected train/test splitting and
// walk-forward robustness analysis.
package validation

import (
	"time"

	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// Window is one rolling train/test fold. Range bounds are inclusive start,
// exclusive end. Candidates inside the purge gap belong to neither side.
type Window struct {
	Index      int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	Train      []types.Candidate
	Test       []types.Candidate
}

// Splitter partitions chronologically ordered candidates with a purge gap.
// The gap models the holding-period lag between forming a signal and
// knowing its outcome, so train labels can never leak into test.
type Splitter struct {
	// PurgeDays is the minimum number of days between the latest train
	// date and the earliest test date.
	PurgeDays int
}

// NewSplitter creates a splitter with the given purge gap.
func NewSplitter(purgeDays int) *Splitter {
	return &Splitter{PurgeDays: purgeDays}
}

// SplitByFraction cuts items at trainFraction and drops everything inside
// the purge gap from both sides. Items must be in chronological order.
// Fails with InsufficientDataError when either side ends up empty.
func (s *Splitter) SplitByFraction(items []types.Candidate, trainFraction float64) ([]types.Candidate, []types.Candidate, error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, &engerr.InvalidConfigError{Field: "train_fraction", Reason: "must be in (0, 1)"}
	}

	cut := int(float64(len(items)) * trainFraction)
	if cut < 1 {
		return nil, nil, &engerr.InsufficientDataError{Segment: "train", Count: cut, Min: 1}
	}
	if cut >= len(items) {
		return nil, nil, &engerr.InsufficientDataError{Segment: "test", Count: 0, Min: 1}
	}

	train := items[:cut]
	boundary := train[len(train)-1].CandidateDate
	earliestTest := boundary.AddDate(0, 0, s.PurgeDays)

	var test []types.Candidate
	for _, c := range items[cut:] {
		if !c.CandidateDate.After(boundary) || c.CandidateDate.Before(earliestTest) {
			continue // inside the purge gap
		}
		test = append(test, c)
	}
	if len(test) == 0 {
		return nil, nil, &engerr.InsufficientDataError{Segment: "test", Count: 0, Min: 1}
	}
	return train, test, nil
}

// RollingWindows lays out rolling train/test folds over the items' date
// span: window i trains on [start+i*step, +trainDays) and tests on the
// following testDays, with the first purge days of each test range dropped.
// The layout yields floor((span-train-test)/step)+1 windows.
func (s *Splitter) RollingWindows(items []types.Candidate, trainDays, testDays, stepDays int) ([]Window, error) {
	if trainDays < 1 || testDays < 1 || stepDays < 1 {
		return nil, &engerr.InvalidConfigError{Field: "train_days/test_days/step_days", Reason: "must be >= 1"}
	}
	if len(items) == 0 {
		return nil, &engerr.InsufficientDataError{Segment: "candidates", Count: 0, Min: 1}
	}

	rangeStart := items[0].CandidateDate
	rangeEnd := items[len(items)-1].CandidateDate.AddDate(0, 0, 1) // exclusive

	var windows []Window
	for i := 0; ; i++ {
		trainStart := rangeStart.AddDate(0, 0, i*stepDays)
		trainEnd := trainStart.AddDate(0, 0, trainDays)
		testEnd := trainEnd.AddDate(0, 0, testDays)
		if testEnd.After(rangeEnd) {
			break
		}
		testStart := trainEnd.AddDate(0, 0, s.PurgeDays)

		w := Window{
			Index:      i,
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  testStart,
			TestEnd:    testEnd,
		}
		for _, c := range items {
			d := c.CandidateDate
			switch {
			case !d.Before(trainStart) && d.Before(trainEnd):
				w.Train = append(w.Train, c)
			case !d.Before(testStart) && d.Before(testEnd):
				w.Test = append(w.Test, c)
			}
		}
		windows = append(windows, w)
	}

	if len(windows) == 0 {
		return nil, &engerr.InsufficientDataError{
			Segment: "windows",
			Count:   0,
			Min:     1,
		}
	}
	return windows, nil
}
