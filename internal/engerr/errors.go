// Package engerr defines the error taxonomy of the simulation core.
//
// Per-trade and per-day anomalies (missing prices) are not errors at all:
// they are recovered locally and recorded as Diagnostic entries on the
// result. The error types here cover the cases that must surface to the
// caller.
package engerr

import "fmt"

// InvalidQuantityError reports a non-positive price or quantity handed to
// the cost model. Programmer error, fails fast.
type InvalidQuantityError struct {
	Price    float64
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid trade parameters: price=%.4f quantity=%d (both must be > 0)", e.Price, e.Quantity)
}

// InvalidConfigError reports a configuration value that fails validation.
// Aborts the run immediately, never silently defaulted.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// InsufficientDataError reports a split or window with too few data points.
// A single window's failure never aborts the surrounding sweep.
type InsufficientDataError struct {
	Segment string
	Count   int
	Min     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data in %s segment: %d items (need >= %d)", e.Segment, e.Count, e.Min)
}
