// Package risk implements position-level risk controls: volatility-tiered
// exit levels, Kelly position sizing, and the drawdown circuit breaker.
package risk

import (
	"sort"

	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// StopTier maps an upper ATR-percent bound to a stop-loss percent. A trade
// whose entry-time ATR fraction is below MaxATRPct uses StopLossPct.
type StopTier struct {
	MaxATRPct   float64 `json:"max_atr_pct" mapstructure:"max_atr_pct"`
	StopLossPct float64 `json:"stop_loss_pct" mapstructure:"stop_loss_pct"`
}

// StopConfig holds the exit-level policy for one run.
type StopConfig struct {
	// Tiers are evaluated in ascending MaxATRPct order; FallbackStopPct
	// applies above the highest tier.
	Tiers           []StopTier `json:"tiers" mapstructure:"tiers"`
	FallbackStopPct float64    `json:"fallback_stop_pct" mapstructure:"fallback_stop_pct"`
	TakeProfitPct   float64    `json:"take_profit_pct" mapstructure:"take_profit_pct"`
	PartialTakePct  float64    `json:"partial_take_pct" mapstructure:"partial_take_pct"`
	FullTakePct     float64    `json:"full_take_pct" mapstructure:"full_take_pct"`
}

// DefaultStopConfig returns the documented tiering: 3% stop below 3% ATR,
// 5% below 5% ATR, 7% above, with a fixed 8% take-profit and a one-shot
// partial take at +5%.
func DefaultStopConfig() StopConfig {
	return StopConfig{
		Tiers: []StopTier{
			{MaxATRPct: 0.03, StopLossPct: 0.03},
			{MaxATRPct: 0.05, StopLossPct: 0.05},
		},
		FallbackStopPct: 0.07,
		TakeProfitPct:   0.08,
		PartialTakePct:  0.05,
		FullTakePct:     0.10,
	}
}

// StopLevels are the absolute price levels derived for one entry.
type StopLevels struct {
	StopLossPrice    float64 `json:"stop_loss_price"`
	TakeProfitPrice  float64 `json:"take_profit_price"`
	PartialTakePrice float64 `json:"partial_take_price"`
	FullTakePrice    float64 `json:"full_take_price"`
	StopLossPct      float64 `json:"stop_loss_pct"`
}

// StopCalculator derives exit levels from entry price and volatility and
// evaluates the daily exit decision.
type StopCalculator struct {
	cfg StopConfig
}

// NewStopCalculator creates a stop calculator. Tiers are sorted by their
// ATR bound so callers may list them in any order.
func NewStopCalculator(cfg StopConfig) *StopCalculator {
	tiers := make([]StopTier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MaxATRPct < tiers[j].MaxATRPct })
	cfg.Tiers = tiers
	return &StopCalculator{cfg: cfg}
}

// StopLossPct returns the tiered stop-loss percent for an ATR fraction.
func (c *StopCalculator) StopLossPct(atrPct float64) float64 {
	for _, tier := range c.cfg.Tiers {
		if atrPct < tier.MaxATRPct {
			return tier.StopLossPct
		}
	}
	return c.cfg.FallbackStopPct
}

// Levels derives the absolute exit levels for an entry at entryPrice with
// the given entry-time ATR fraction.
func (c *StopCalculator) Levels(entryPrice, atrPct float64) StopLevels {
	stopPct := c.StopLossPct(atrPct)
	return StopLevels{
		StopLossPrice:    entryPrice * (1 - stopPct),
		TakeProfitPrice:  entryPrice * (1 + c.cfg.TakeProfitPct),
		PartialTakePrice: entryPrice * (1 + c.cfg.PartialTakePct),
		FullTakePrice:    entryPrice * (1 + c.cfg.FullTakePct),
		StopLossPct:      stopPct,
	}
}

// ShouldExit evaluates the exit decision for an open trade at currentPrice.
// Priority order: stop loss (capital protection) first, then the full
// take-profit, then the one-shot partial, then the holding-period limit.
// The partial instructs the caller to liquidate exactly half the remaining
// quantity; the remainder's thresholds are unchanged.
func (c *StopCalculator) ShouldExit(trade *types.Trade, currentPrice float64, daysHeld, maxHoldingDays int) types.ExitReason {
	if currentPrice <= trade.StopLossPrice {
		return types.ExitStopLoss
	}
	if currentPrice >= trade.TakeProfitPrice {
		return types.ExitTakeProfit
	}
	if !trade.PartialSold && currentPrice >= trade.EntryPrice*(1+c.cfg.PartialTakePct) {
		return types.ExitPartialProfit
	}
	if maxHoldingDays > 0 && daysHeld >= maxHoldingDays {
		return types.ExitMaxHolding
	}
	return types.ExitNone
}
