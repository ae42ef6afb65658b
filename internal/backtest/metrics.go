package backtest

import "math"

// UpdateMetrics recomputes all derived metrics from the ledger and equity
// curve. Called once at the end of a run.
func (r *BacktestResult) UpdateMetrics() {
	r.TotalReturn = 0
	if r.StartBalance > 0 {
		r.TotalReturn = (r.EndBalance - r.StartBalance) / r.StartBalance
	}

	r.TradeCount = 0
	r.WinningTrades = 0
	for _, t := range r.Trades {
		if !t.Finalized() {
			continue
		}
		r.TradeCount++
		if t.NetReturn > 0 {
			r.WinningTrades++
		}
	}
	r.LosingTrades = r.TradeCount - r.WinningTrades
	r.WinRate = 0
	if r.TradeCount > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TradeCount)
	}

	r.SharpeRatio = r.calculateSharpeRatio()
	r.SortinoRatio = r.calculateSortinoRatio()
	r.MaxDrawdown = r.calculateMaxDrawdown()
}

// calculateSharpeRatio computes mean/stddev of per-trade net returns with a
// zero risk-free rate. Returns 0 when the dispersion degenerates.
func (r *BacktestResult) calculateSharpeRatio() float64 {
	returns := r.TradeReturns()
	if len(returns) == 0 {
		return 0
	}

	avg := mean(returns)
	variance := 0.0
	for _, ret := range returns {
		variance += (ret - avg) * (ret - avg)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std < 1e-10 {
		return 0
	}
	return avg / std
}

// calculateSortinoRatio computes mean daily equity return over downside
// deviation. Returns 0 when there are no losing days (undefined, not Inf).
func (r *BacktestResult) calculateSortinoRatio() float64 {
	if len(r.EquityCurve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(r.EquityCurve)-1)
	for i := 1; i < len(r.EquityCurve); i++ {
		prev := r.EquityCurve[i-1].Equity
		if prev > 0 {
			returns = append(returns, (r.EquityCurve[i].Equity-prev)/prev)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	avg := mean(returns)
	downsideVariance := 0.0
	downsideCount := 0
	for _, ret := range returns {
		if ret < 0 {
			downsideVariance += ret * ret
			downsideCount++
		}
	}
	if downsideCount == 0 || downsideVariance == 0 {
		return 0
	}
	downside := math.Sqrt(downsideVariance / float64(downsideCount))
	return avg / downside
}

func (r *BacktestResult) calculateMaxDrawdown() float64 {
	maxDD := 0.0
	for _, point := range r.EquityCurve {
		if point.DrawdownPct > maxDD {
			maxDD = point.DrawdownPct
		}
	}
	return maxDD
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
