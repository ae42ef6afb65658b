// Package backtest replays historical trading candidates against real price
// series under cost-aware exit rules, Kelly position sizing, and the
// drawdown circuit breaker.
package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/This-HW/hantu-quant-sub002/internal/costs"
	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/internal/indicators"
	"github.com/This-HW/hantu-quant-sub002/internal/monitoring"
	"github.com/This-HW/hantu-quant-sub002/internal/risk"
	"github.com/This-HW/hantu-quant-sub002/pkg/data"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// Config holds everything one backtest run needs. No compiled-in constants:
// every knob is overridable per run.
type Config struct {
	InitialBalance float64   `json:"initial_balance" mapstructure:"initial_balance"`
	StartDate      time.Time `json:"start_date" mapstructure:"start_date"`
	EndDate        time.Time `json:"end_date" mapstructure:"end_date"`
	MaxHoldingDays int       `json:"max_holding_days" mapstructure:"max_holding_days"`
	ATRPeriod      int       `json:"atr_period" mapstructure:"atr_period"`
	// KellySampleSize is how many trailing closed-trade returns feed the
	// sizer on each entry.
	KellySampleSize int `json:"kelly_sample_size" mapstructure:"kelly_sample_size"`

	Costs   costs.Config       `json:"costs" mapstructure:"costs"`
	Stops   risk.StopConfig    `json:"stops" mapstructure:"stops"`
	Kelly   risk.KellyConfig   `json:"kelly" mapstructure:"kelly"`
	Circuit risk.CircuitConfig `json:"circuit" mapstructure:"circuit"`
}

// DefaultConfig returns a run configuration with the documented defaults.
func DefaultConfig() Config {
	return Config{
		InitialBalance:  10_000_000,
		MaxHoldingDays:  10,
		ATRPeriod:       indicators.DefaultATRPeriod,
		KellySampleSize: 20,
		Costs:           costs.DefaultConfig(),
		Stops:           risk.DefaultStopConfig(),
		Kelly:           risk.DefaultKellyConfig(),
		Circuit:         risk.DefaultCircuitConfig(),
	}
}

// Engine is the strategy backtester. Each run owns its full instance tree
// (cost model, stop calculator, sizer, circuit breaker, price memo); nothing
// is shared across runs.
type Engine struct {
	cfg    Config
	costs  *costs.Model
	stops  *risk.StopCalculator
	sizer  *risk.Sizer
	gate   *risk.CircuitBreaker
	prices *data.CachedSource
	log    zerolog.Logger
}

// openPosition pairs an open trade with its remaining cost basis so partial
// exits can realize P&L proportionally.
type openPosition struct {
	trade     *types.Trade
	costBasis float64 // entry cost of the still-open quantity
	origCost  float64
	origQty   int
}

// NewEngine creates a backtester over the given price collaborator. Lookups
// are memoized per run so the same symbol+date is fetched once.
func NewEngine(cfg Config, prices data.PriceSource, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg:    cfg,
		costs:  costs.NewModel(cfg.Costs),
		stops:  risk.NewStopCalculator(cfg.Stops),
		sizer:  risk.NewSizer(cfg.Kelly),
		gate:   risk.NewCircuitBreaker(cfg.Circuit),
		prices: data.NewCachedSource(prices),
		log:    logger.With().Str("component", "backtest").Logger(),
	}
	e.gate.SetTransitionCallback(func(from, to risk.GateState, dd risk.Drawdowns) {
		e.log.Warn().
			Str("from", from.String()).
			Str("to", to.String()).
			Float64("daily_dd", dd.Daily).
			Float64("weekly_dd", dd.Weekly).
			Float64("inception_dd", dd.Inception).
			Msg("circuit breaker transition")
	})
	return e
}

// Gate exposes the run's circuit breaker (read-only use by callers).
func (e *Engine) Gate() *risk.CircuitBreaker {
	return e.gate
}

// Run simulates the configured date range over the given candidates and
// returns the aggregated result. Candidates outside the range are ignored;
// if none remain the shared empty-result sentinel is returned. A candidate
// dated on a weekend matures on the next trading day; when no trading day
// is left in the range it is skipped with a diagnostic. The only returned
// errors are configuration errors; per-day anomalies are absorbed into the
// result's diagnostics.
func (e *Engine) Run(candidates []types.Candidate) (*BacktestResult, error) {
	if e.cfg.InitialBalance <= 0 {
		return nil, &engerr.InvalidConfigError{Field: "initial_balance", Reason: "must be > 0"}
	}
	if e.cfg.StartDate.IsZero() || e.cfg.EndDate.IsZero() || e.cfg.EndDate.Before(e.cfg.StartDate) {
		return nil, &engerr.InvalidConfigError{Field: "start_date/end_date", Reason: "range must be set and ordered"}
	}

	byDay := make(map[string][]types.Candidate)
	diagnostics := []engerr.Diagnostic{}
	inRange := 0
	for _, c := range candidates {
		if c.CandidateDate.Before(e.cfg.StartDate) || c.CandidateDate.After(e.cfg.EndDate) {
			continue
		}
		day := c.CandidateDate
		if isWeekend(day) {
			day = nextTradingDay(day)
		}
		if day.After(e.cfg.EndDate) {
			diagnostics = append(diagnostics, engerr.Diagnostic{
				Kind: engerr.DiagEntrySkipped, Date: c.CandidateDate, Symbol: c.Symbol,
				Detail: "no trading day left in range for weekend candidate",
			})
			continue
		}
		key := dayKey(day)
		byDay[key] = append(byDay[key], c)
		inRange++
	}
	if inRange == 0 {
		r := NewEmptyResult(e.cfg.InitialBalance, "no candidates in range")
		r.Diagnostics = append(r.Diagnostics, diagnostics...)
		return r, nil
	}

	result := &BacktestResult{
		StartDate:    e.cfg.StartDate,
		EndDate:      e.cfg.EndDate,
		StartBalance: e.cfg.InitialBalance,
		Trades:       []types.Trade{},
		EquityCurve:  []types.EquityCurvePoint{},
		Diagnostics:  diagnostics,
	}

	run := &runState{
		cash:      e.cfg.InitialBalance,
		peak:      e.cfg.InitialBalance,
		lastClose: make(map[string]float64),
		result:    result,
	}

	for day := e.cfg.StartDate; !day.After(e.cfg.EndDate); day = day.AddDate(0, 0, 1) {
		if isWeekend(day) {
			continue
		}
		e.manageOpenTrades(run, day)
		e.openEntries(run, day, byDay[dayKey(day)])
		e.appendEquityPoint(run, day)
	}

	e.forceCloseAll(run, e.cfg.EndDate, "simulation window ended")

	result.EndBalance = run.cash
	result.UpdateMetrics()
	return result, nil
}

// runState is the mutable per-run simulation state.
type runState struct {
	cash      float64
	realized  float64
	peak      float64
	open      []*openPosition
	lastClose map[string]float64
	// closedReturns accumulates finalized net returns in close order; the
	// tail of this slice is the Kelly sample.
	closedReturns []float64
	result        *BacktestResult
}

// manageOpenTrades advances every open trade by one trading day: fetch the
// day's price, evaluate the exit decision, and apply costs on any exit. A
// missing price is a hold, recorded as a data-quality gap.
func (e *Engine) manageOpenTrades(run *runState, day time.Time) {
	remaining := run.open[:0]
	for _, pos := range run.open {
		pos.trade.DaysHeld++

		price, ok := e.prices.GetPrice(pos.trade.Symbol, day)
		if !ok {
			run.diag(engerr.Diagnostic{
				Kind: engerr.DiagDataGap, Date: day, Symbol: pos.trade.Symbol,
				Detail: "no price for open trade, holding",
			})
			monitoring.RecordDataGap()
			remaining = append(remaining, pos)
			continue
		}
		current := price.Close
		run.lastClose[pos.trade.Symbol] = current

		switch reason := e.stops.ShouldExit(pos.trade, current, pos.trade.DaysHeld, e.cfg.MaxHoldingDays); reason {
		case types.ExitNone:
			remaining = append(remaining, pos)
		case types.ExitPartialProfit:
			e.partialExit(run, pos, day, current)
			remaining = append(remaining, pos)
		default:
			if !e.closePosition(run, pos, day, current, reason) {
				remaining = append(remaining, pos)
			}
		}
	}
	run.open = remaining
}

// partialExit liquidates half the remaining quantity at current price. It
// fires once per trade; with a single share left there is nothing to halve
// and the trade is left untouched.
func (e *Engine) partialExit(run *runState, pos *openPosition, day time.Time, current float64) {
	half := pos.trade.Quantity / 2
	if half < 1 {
		pos.trade.PartialSold = true
		return
	}
	proceeds, err := e.costs.SellProceeds(current, half)
	if err != nil {
		run.diag(engerr.Diagnostic{
			Kind: engerr.DiagDataGap, Date: day, Symbol: pos.trade.Symbol,
			Detail: fmt.Sprintf("sell rejected: %v, holding", err),
		})
		return
	}
	soldBasis := pos.costBasis * float64(half) / float64(pos.trade.Quantity)
	pnl := proceeds - soldBasis

	pos.trade.Quantity -= half
	pos.costBasis -= soldBasis
	pos.trade.PartialSold = true
	pos.trade.State = types.TradePartiallyClosed
	pos.trade.RealizedPnL += pnl
	run.cash += proceeds
	run.realized += pnl

	e.log.Debug().Str("symbol", pos.trade.Symbol).Int("sold", half).Float64("price", current).Msg("partial profit take")
	monitoring.RecordExit(types.ExitPartialProfit.String())
}

// closePosition liquidates the full remaining quantity and finalizes the
// trade. A rejected sell leaves the trade open with a diagnostic and
// returns false so the caller keeps the position.
func (e *Engine) closePosition(run *runState, pos *openPosition, day time.Time, current float64, reason types.ExitReason) bool {
	proceeds, err := e.costs.SellProceeds(current, pos.trade.Quantity)
	if err != nil {
		run.diag(engerr.Diagnostic{
			Kind: engerr.DiagDataGap, Date: day, Symbol: pos.trade.Symbol,
			Detail: fmt.Sprintf("sell rejected: %v, holding", err),
		})
		return false
	}
	pnl := proceeds - pos.costBasis
	run.cash += proceeds
	run.realized += pnl

	t := pos.trade
	t.RealizedPnL += pnl
	t.ExitDate = day
	t.ExitPrice = current
	t.ExitReason = reason
	t.State = types.TradeClosed
	t.GrossReturn = (current - t.EntryPrice) / t.EntryPrice
	t.NetReturn = t.RealizedPnL / pos.origCost
	t.Quantity = pos.origQty // report the originally opened size

	run.closedReturns = append(run.closedReturns, t.NetReturn)
	run.result.Trades = append(run.result.Trades, *t)
	e.log.Debug().
		Str("symbol", t.Symbol).
		Str("reason", reason.String()).
		Float64("net_return", t.NetReturn).
		Msg("trade closed")
	monitoring.RecordExit(reason.String())
	return true
}

// openEntries opens trades for the candidates maturing on this day, gated
// by the circuit breaker and sized by the Kelly sizer.
func (e *Engine) openEntries(run *runState, day time.Time, todays []types.Candidate) {
	for _, c := range todays {
		if !e.gate.AllowEntry() {
			run.diag(engerr.Diagnostic{
				Kind: engerr.DiagEntrySkipped, Date: day, Symbol: c.Symbol,
				Detail: fmt.Sprintf("circuit breaker %s", e.gate.State()),
			})
			continue
		}

		price, ok := e.prices.GetPrice(c.Symbol, day)
		if !ok {
			run.diag(engerr.Diagnostic{
				Kind: engerr.DiagDataGap, Date: day, Symbol: c.Symbol,
				Detail: "no price on candidate date, entry skipped",
			})
			monitoring.RecordDataGap()
			continue
		}
		entryPrice := c.EntryPrice
		if entryPrice <= 0 {
			entryPrice = price.Close
		}

		atrPct := e.entryATRPct(run, c.Symbol, day)
		capital := e.sizer.RecommendCapital(e.kellySample(run), c.SignalConfidence, run.cash)
		perShare, err := e.costs.BuyCost(entryPrice, 1)
		if err != nil {
			run.diag(engerr.Diagnostic{
				Kind: engerr.DiagEntrySkipped, Date: day, Symbol: c.Symbol,
				Detail: fmt.Sprintf("invalid entry price: %v", err),
			})
			continue
		}
		quantity := int(capital / perShare)
		if quantity < 1 {
			run.diag(engerr.Diagnostic{
				Kind: engerr.DiagEntrySkipped, Date: day, Symbol: c.Symbol,
				Detail: "allocated capital below one share",
			})
			continue
		}

		buyCost, err := e.costs.BuyCost(entryPrice, quantity)
		if err != nil || buyCost > run.cash {
			run.diag(engerr.Diagnostic{
				Kind: engerr.DiagEntrySkipped, Date: day, Symbol: c.Symbol,
				Detail: "insufficient cash for entry",
			})
			continue
		}

		levels := e.stops.Levels(entryPrice, atrPct)
		trade := &types.Trade{
			Symbol:          c.Symbol,
			State:           types.TradeOpen,
			EntryDate:       day,
			EntryPrice:      entryPrice,
			Quantity:        quantity,
			StopLossPrice:   levels.StopLossPrice,
			TakeProfitPrice: levels.TakeProfitPrice,
			EntryCost:       buyCost,
		}
		run.cash -= buyCost
		run.lastClose[c.Symbol] = price.Close
		run.open = append(run.open, &openPosition{
			trade:     trade,
			costBasis: buyCost,
			origCost:  buyCost,
			origQty:   quantity,
		})

		e.log.Debug().
			Str("symbol", c.Symbol).
			Int("quantity", quantity).
			Float64("entry", entryPrice).
			Float64("stop", levels.StopLossPrice).
			Float64("target", levels.TakeProfitPrice).
			Msg("trade opened")
		monitoring.RecordEntry(c.Symbol)
	}
}

// entryATRPct computes the entry-time ATR fraction from trailing weekday
// closes. A short history degrades to the tightest stop tier (ATR 0) with a
// data-gap diagnostic, keeping the entry conservative rather than skipped.
func (e *Engine) entryATRPct(run *runState, symbol string, day time.Time) float64 {
	need := e.cfg.ATRPeriod + 1
	history := make([]types.PricePoint, 0, need)
	// Walk back up to three times the period in weekdays before giving up.
	cursor := day
	for tries := 0; len(history) < need && tries < e.cfg.ATRPeriod*3; {
		cursor = cursor.AddDate(0, 0, -1)
		if isWeekend(cursor) {
			continue
		}
		tries++
		if p, ok := e.prices.GetPrice(symbol, cursor); ok {
			history = append(history, p)
		}
	}
	if len(history) < need {
		run.diag(engerr.Diagnostic{
			Kind: engerr.DiagDataGap, Date: day, Symbol: symbol,
			Detail: fmt.Sprintf("only %d of %d days for ATR, using tightest stop tier", len(history), need),
		})
		return 0
	}
	// history was collected newest-first; reverse to chronological order.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	atrPct, err := indicators.ATRPct(history, e.cfg.ATRPeriod)
	if err != nil {
		return 0
	}
	return atrPct
}

// kellySample returns the tail of the finalized-trade returns.
func (e *Engine) kellySample(run *runState) []float64 {
	n := e.cfg.KellySampleSize
	if n <= 0 || len(run.closedReturns) <= n {
		return run.closedReturns
	}
	return run.closedReturns[len(run.closedReturns)-n:]
}

// appendEquityPoint records the day's account state, feeds the circuit
// breaker, and liquidates everything if the breaker halts.
func (e *Engine) appendEquityPoint(run *runState, day time.Time) {
	openValue := 0.0
	for _, pos := range run.open {
		last, ok := run.lastClose[pos.trade.Symbol]
		if !ok {
			last = pos.trade.EntryPrice
		}
		openValue += last * float64(pos.trade.Quantity)
	}
	equity := run.cash + openValue
	if equity > run.peak {
		run.peak = equity
	}
	drawdown := 0.0
	if run.peak > 0 && equity < run.peak {
		drawdown = (run.peak - equity) / run.peak
	}

	point := types.EquityCurvePoint{
		Date:               day,
		Cash:               run.cash,
		OpenPositionsValue: openValue,
		RealizedPnL:        run.realized,
		Equity:             equity,
		DrawdownPct:        drawdown,
	}
	run.result.EquityCurve = append(run.result.EquityCurve, point)

	if e.gate.Observe(point) == risk.GateHalted && len(run.open) > 0 {
		e.forceCloseAll(run, day, "circuit breaker halted")
	}
}

// forceCloseAll liquidates every open position at its last known close.
// The exit date is the next trading day so a trade entered today still
// closes strictly after its entry.
func (e *Engine) forceCloseAll(run *runState, day time.Time, why string) {
	remaining := run.open[:0]
	for _, pos := range run.open {
		current, ok := run.lastClose[pos.trade.Symbol]
		if !ok {
			current = pos.trade.EntryPrice
		}
		exitDate := day
		if !exitDate.After(pos.trade.EntryDate) {
			exitDate = nextTradingDay(pos.trade.EntryDate)
		}
		if !e.closePosition(run, pos, exitDate, current, types.ExitForcedClose) {
			remaining = append(remaining, pos)
			continue
		}
		run.diag(engerr.Diagnostic{
			Kind: engerr.DiagForcedClose, Date: exitDate, Symbol: pos.trade.Symbol,
			Detail: why,
		})
	}
	run.open = remaining
}

func (run *runState) diag(d engerr.Diagnostic) {
	run.result.Diagnostics = append(run.result.Diagnostics, d)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func nextTradingDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for isWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
