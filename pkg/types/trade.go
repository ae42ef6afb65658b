package types

import "time"

// TradeState tracks the lifecycle of a simulated trade.
type TradeState int

const (
	TradePending TradeState = iota
	TradeOpen
	TradePartiallyClosed
	TradeClosed
)

// String returns the string representation of the trade state.
func (s TradeState) String() string {
	switch s {
	case TradePending:
		return "pending"
	case TradeOpen:
		return "open"
	case TradePartiallyClosed:
		return "partially_closed"
	case TradeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ExitReason is the tagged reason a trade (or part of it) was closed.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitPartialProfit
	ExitTakeProfit
	ExitStopLoss
	ExitMaxHolding
	// ExitForcedClose covers liquidation at the end of the simulation
	// window and on a circuit-breaker halt.
	ExitForcedClose
)

// String returns the string representation of the exit reason.
func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "none"
	case ExitPartialProfit:
		return "partial_profit"
	case ExitTakeProfit:
		return "take_profit"
	case ExitStopLoss:
		return "stop_loss"
	case ExitMaxHolding:
		return "max_holding_exit"
	case ExitForcedClose:
		return "forced_close"
	default:
		return "unknown"
	}
}

// Trade is a position opened from a Candidate and mutated by the daily
// simulation loop until it is finalized. Owned exclusively by the backtest
// run that created it.
type Trade struct {
	Symbol          string     `json:"symbol"`
	State           TradeState `json:"state"`
	EntryDate       time.Time  `json:"entry_date"`
	EntryPrice      float64    `json:"entry_price"`
	Quantity        int        `json:"quantity"`
	StopLossPrice   float64    `json:"stop_loss_price"`
	TakeProfitPrice float64    `json:"take_profit_price"`
	PartialSold     bool       `json:"partial_sold"`
	EntryCost       float64    `json:"entry_cost"`
	RealizedPnL     float64    `json:"realized_pnl"`
	DaysHeld        int        `json:"days_held"`

	ExitDate    time.Time  `json:"exit_date,omitempty"`
	ExitPrice   float64    `json:"exit_price,omitempty"`
	ExitReason  ExitReason `json:"exit_reason"`
	GrossReturn float64    `json:"gross_return,omitempty"`
	NetReturn   float64    `json:"net_return,omitempty"`
}

// Finalized reports whether the trade has been fully closed.
func (t *Trade) Finalized() bool {
	return t.State == TradeClosed
}
