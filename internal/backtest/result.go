package backtest

import (
	"time"

	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// BacktestResult aggregates a full simulation run: the trade ledger, the
// equity curve, the derived performance metrics, and the diagnostic log of
// every recovered anomaly. Plain serializable data for the report layer.
type BacktestResult struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	StartBalance float64 `json:"start_balance"`
	EndBalance   float64 `json:"end_balance"`
	TotalReturn  float64 `json:"total_return"`
	WinRate      float64 `json:"win_rate"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`

	TradeCount    int `json:"trade_count"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`

	Trades      []types.Trade            `json:"trades"`
	EquityCurve []types.EquityCurvePoint `json:"equity_curve"`
	Diagnostics []engerr.Diagnostic      `json:"diagnostics"`

	// Empty marks the shared "no data" sentinel from NewEmptyResult.
	Empty       bool   `json:"empty"`
	EmptyReason string `json:"empty_reason,omitempty"`
}

// NewEmptyResult is the single named constructor for the "no candidates in
// range" sentinel, so every caller shares identical no-data semantics. All
// metrics are zero, no trades, no equity curve.
func NewEmptyResult(startBalance float64, reason string) *BacktestResult {
	return &BacktestResult{
		StartBalance: startBalance,
		EndBalance:   startBalance,
		Empty:        true,
		EmptyReason:  reason,
		Trades:       []types.Trade{},
		EquityCurve:  []types.EquityCurvePoint{},
		Diagnostics:  []engerr.Diagnostic{},
	}
}

// TradeReturns returns the net returns of all finalized trades in ledger
// order. This is the sample the Kelly sizer and the Sharpe calculation
// consume.
func (r *BacktestResult) TradeReturns() []float64 {
	returns := make([]float64, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.Finalized() {
			returns = append(returns, t.NetReturn)
		}
	}
	return returns
}
