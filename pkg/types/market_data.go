package types

import "time"

// PricePoint is a single day of OHLCV data for a symbol. Read-only input
// sourced from the external market-data collaborator.
type PricePoint struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Candidate is an entry candidate produced by the external selection
// pipeline. Immutable once ingested.
type Candidate struct {
	Symbol           string    `json:"symbol"`
	CandidateDate    time.Time `json:"candidate_date"`
	EntryPrice       float64   `json:"entry_price"`
	SignalConfidence float64   `json:"signal_confidence"` // in [0, 1]
}

// EquityCurvePoint is one simulated trading day of account state.
type EquityCurvePoint struct {
	Date               time.Time `json:"date"`
	Cash               float64   `json:"cash"`
	OpenPositionsValue float64   `json:"open_positions_value"`
	RealizedPnL        float64   `json:"realized_pnl_cumulative"`
	Equity             float64   `json:"equity"`
	DrawdownPct        float64   `json:"drawdown_pct"`
}
