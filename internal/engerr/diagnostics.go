package engerr

import (
	"fmt"
	"time"
)

// DiagnosticKind classifies recoverable anomalies recorded during a run.
type DiagnosticKind string

const (
	DiagDataGap       DiagnosticKind = "data_gap"
	DiagEntrySkipped  DiagnosticKind = "entry_skipped"
	DiagWindowSkipped DiagnosticKind = "window_skipped"
	DiagForcedClose   DiagnosticKind = "forced_close"
)

// Diagnostic is one recoverable anomaly absorbed during a run. Results
// always carry the full list so silent data loss is not possible.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Date   time.Time      `json:"date,omitempty"`
	Symbol string         `json:"symbol,omitempty"`
	Detail string         `json:"detail"`
}

func (d Diagnostic) String() string {
	if d.Symbol != "" {
		return fmt.Sprintf("[%s] %s %s: %s", d.Kind, d.Date.Format("2006-01-02"), d.Symbol, d.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Date.Format("2006-01-02"), d.Detail)
}
