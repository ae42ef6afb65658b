package data

import (
	"time"

	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// PriceSource is the external market-data collaborator. Implementations
// must be deterministic for a fixed (symbol, date) within a run. A false
// second return value means no price exists for that day; the simulator
// treats that as a data-quality gap, never an error.
type PriceSource interface {
	GetPrice(symbol string, date time.Time) (types.PricePoint, bool)
}

// CandidateSource produces the ordered entry candidates for a date range.
// The simulator treats the result as read-only input.
type CandidateSource interface {
	Candidates(start, end time.Time) ([]types.Candidate, error)
}

// PriceCache memoizes price lookups for one run.
type PriceCache interface {
	Get(symbol string, date time.Time) (types.PricePoint, bool, bool)
	Set(symbol string, date time.Time, point types.PricePoint, found bool)
	Size() int
}
