package backtest

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// fakeSource serves a flat base price for every date, with per-day close
// overrides and explicit holes for gap testing.
type fakeSource struct {
	base    float64
	closes  map[string]float64
	missing map[string]bool
}

func newFakeSource(base float64) *fakeSource {
	return &fakeSource{
		base:    base,
		closes:  make(map[string]float64),
		missing: make(map[string]bool),
	}
}

func (s *fakeSource) setClose(date time.Time, close float64) {
	s.closes[date.Format("2006-01-02")] = close
}

func (s *fakeSource) setMissing(date time.Time) {
	s.missing[date.Format("2006-01-02")] = true
}

func (s *fakeSource) GetPrice(symbol string, date time.Time) (types.PricePoint, bool) {
	key := date.Format("2006-01-02")
	if s.missing[key] {
		return types.PricePoint{}, false
	}
	close := s.base
	if c, ok := s.closes[key]; ok {
		close = c
	}
	return types.PricePoint{
		Symbol: symbol,
		Date:   date,
		Open:   close,
		High:   close * 1.01,
		Low:    close * 0.99,
		Close:  close,
		Volume: 1_000_000,
	}, true
}

// monday is a known trading day used as the anchor for all engine tests.
var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func testConfig(start, end time.Time) Config {
	cfg := DefaultConfig()
	cfg.StartDate = start
	cfg.EndDate = end
	return cfg
}

func candidate(date time.Time, confidence float64) types.Candidate {
	return types.Candidate{
		Symbol:           "005930",
		CandidateDate:    date,
		SignalConfidence: confidence,
	}
}

// TestEngine_InvalidConfig tests fail-fast on bad run parameters
func TestEngine_InvalidConfig(t *testing.T) {
	src := newFakeSource(70_000)

	cfg := testConfig(monday, monday.AddDate(0, 0, 10))
	cfg.InitialBalance = 0
	_, err := NewEngine(cfg, src, zerolog.Nop()).Run([]types.Candidate{candidate(monday, 0.7)})
	var cfgErr *engerr.InvalidConfigError
	assert.ErrorAs(t, err, &cfgErr)

	cfg = testConfig(monday.AddDate(0, 0, 10), monday)
	_, err = NewEngine(cfg, src, zerolog.Nop()).Run([]types.Candidate{candidate(monday, 0.7)})
	assert.ErrorAs(t, err, &cfgErr)
}

// TestEngine_NoCandidates tests the empty-result sentinel
func TestEngine_NoCandidates(t *testing.T) {
	src := newFakeSource(70_000)
	cfg := testConfig(monday, monday.AddDate(0, 0, 10))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run(nil)
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Equal(t, cfg.InitialBalance, result.EndBalance)
	assert.Zero(t, result.TradeCount)

	// candidates entirely outside the range count as none
	result, err = engine.Run([]types.Candidate{candidate(monday.AddDate(1, 0, 0), 0.7)})
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.NotEmpty(t, result.EmptyReason)
}

// TestEngine_WeekendCandidateEntersNextTradingDay tests that a
// Saturday-dated candidate opens on the following Monday instead of being
// dropped by the weekday loop
func TestEngine_WeekendCandidateEntersNextTradingDay(t *testing.T) {
	src := newFakeSource(70_000)
	saturday := monday.AddDate(0, 0, 5)

	cfg := testConfig(monday, monday.AddDate(0, 0, 25))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(saturday, 0.7)})
	require.NoError(t, err)
	assert.False(t, result.Empty)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, saturday.AddDate(0, 0, 2), result.Trades[0].EntryDate)
}

// TestEngine_WeekendCandidatePastRangeEnd tests that a weekend candidate
// with no trading day left in the range surfaces as a diagnostic, never a
// silent drop
func TestEngine_WeekendCandidatePastRangeEnd(t *testing.T) {
	src := newFakeSource(70_000)
	saturday := monday.AddDate(0, 0, 5)

	cfg := testConfig(monday, saturday.AddDate(0, 0, 1)) // range ends Sunday
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(saturday, 0.7)})
	require.NoError(t, err)
	assert.True(t, result.Empty)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, engerr.DiagEntrySkipped, result.Diagnostics[0].Kind)
	assert.Equal(t, saturday, result.Diagnostics[0].Date)
}

// TestEngine_StopLossExit tests a drop through the tiered stop
func TestEngine_StopLossExit(t *testing.T) {
	src := newFakeSource(70_000)
	// flat 2% ATR gives a 3% stop at 67,900; Thursday gaps to 60,000
	src.setClose(monday.AddDate(0, 0, 3), 60_000)

	cfg := testConfig(monday, monday.AddDate(0, 0, 10))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.Equal(t, types.TradeClosed, trade.State)
	assert.Equal(t, types.ExitStopLoss, trade.ExitReason)
	assert.InDelta(t, 60_000, trade.ExitPrice, 1e-9)
	assert.True(t, trade.ExitDate.After(trade.EntryDate))
	assert.Negative(t, trade.NetReturn)
}

// TestEngine_TakeProfitExit tests a jump through the fixed 8% target
func TestEngine_TakeProfitExit(t *testing.T) {
	src := newFakeSource(70_000)
	src.setClose(monday.AddDate(0, 0, 3), 80_000) // above 75,600

	cfg := testConfig(monday, monday.AddDate(0, 0, 10))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.Equal(t, types.ExitTakeProfit, trade.ExitReason)
	assert.Positive(t, trade.NetReturn)
	assert.Equal(t, 1, result.WinningTrades)
	assert.InDelta(t, 1.0, result.WinRate, 1e-9)
}

// TestEngine_PartialThenMaxHolding tests the one-shot partial take followed
// by the holding-period exit of the remainder
func TestEngine_PartialThenMaxHolding(t *testing.T) {
	src := newFakeSource(70_000)
	// Tuesday touches the +5% partial level but not the target
	src.setClose(monday.AddDate(0, 0, 1), 74_000)

	cfg := testConfig(monday, monday.AddDate(0, 0, 25))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.True(t, trade.PartialSold)
	assert.Equal(t, types.ExitMaxHolding, trade.ExitReason)
	assert.Equal(t, cfg.MaxHoldingDays, trade.DaysHeld)
	// the ledger reports the originally opened quantity
	assert.Positive(t, trade.Quantity)
	assert.True(t, trade.ExitDate.After(trade.EntryDate))
}

// TestEngine_DataGapHolds tests that a missing price is a hold with a
// diagnostic, not an error or a phantom exit
func TestEngine_DataGapHolds(t *testing.T) {
	src := newFakeSource(70_000)
	src.setMissing(monday.AddDate(0, 0, 2)) // Wednesday vanishes

	cfg := testConfig(monday, monday.AddDate(0, 0, 25))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)

	var gaps int
	for _, d := range result.Diagnostics {
		if d.Kind == engerr.DiagDataGap {
			gaps++
		}
	}
	assert.GreaterOrEqual(t, gaps, 1)

	// the trade still ran its full course
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.ExitMaxHolding, result.Trades[0].ExitReason)
}

// TestEngine_BadPriceKeepsPosition tests that a rejected liquidation leaves
// the position open with a diagnostic instead of vanishing from the ledger
func TestEngine_BadPriceKeepsPosition(t *testing.T) {
	src := newFakeSource(70_000)
	// Tuesday prints an invalid zero, which trips the stop but cannot fill
	src.setClose(monday.AddDate(0, 0, 1), 0)

	cfg := testConfig(monday, monday.AddDate(0, 0, 25))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)

	// the trade survives the bad print and still finalizes later
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.TradeClosed, result.Trades[0].State)

	var rejected int
	for _, d := range result.Diagnostics {
		if d.Kind == engerr.DiagDataGap && strings.Contains(d.Detail, "sell rejected") {
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)
}

// TestEngine_FlatMarketLosesCosts tests that a round trip at an unchanged
// price still loses the commission, tax, and slippage
func TestEngine_FlatMarketLosesCosts(t *testing.T) {
	src := newFakeSource(70_000)

	cfg := testConfig(monday, monday.AddDate(0, 0, 25))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	assert.Negative(t, result.Trades[0].NetReturn)
	assert.Less(t, result.EndBalance, result.StartBalance)
}

// TestEngine_RestrictedGateBlocksEntries tests that a tripped breaker skips
// later candidates with a diagnostic
func TestEngine_RestrictedGateBlocksEntries(t *testing.T) {
	src := newFakeSource(70_000)
	src.setClose(monday.AddDate(0, 0, 1), 60_000) // Tuesday crash
	src.setClose(monday.AddDate(0, 0, 2), 60_000)

	cfg := testConfig(monday, monday.AddDate(0, 0, 10))
	// size up so the single-position loss moves the whole account
	cfg.Kelly.BaseAllocation = 10_000_000
	cfg.Kelly.DefaultFraction = 0.40

	engine := NewEngine(cfg, src, zerolog.Nop())
	result, err := engine.Run([]types.Candidate{
		candidate(monday, 0.85),
		candidate(monday.AddDate(0, 0, 2), 0.85), // Wednesday, after the trip
	})
	require.NoError(t, err)

	// only the Monday entry went through
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.ExitStopLoss, result.Trades[0].ExitReason)

	var skipped int
	for _, d := range result.Diagnostics {
		if d.Kind == engerr.DiagEntrySkipped {
			skipped++
		}
	}
	assert.GreaterOrEqual(t, skipped, 1)
}

// TestEngine_ForcedCloseAtWindowEnd tests liquidation of still-open trades
// when the simulation window ends
func TestEngine_ForcedCloseAtWindowEnd(t *testing.T) {
	src := newFakeSource(70_000)

	end := monday.AddDate(0, 0, 4) // Friday
	cfg := testConfig(monday, end)
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(end, 0.7)})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.Equal(t, types.ExitForcedClose, trade.ExitReason)
	assert.True(t, trade.ExitDate.After(trade.EntryDate),
		"forced close must still exit strictly after entry")

	var forced int
	for _, d := range result.Diagnostics {
		if d.Kind == engerr.DiagForcedClose {
			forced++
		}
	}
	assert.Equal(t, 1, forced)
}

// TestEngine_Deterministic tests that identical inputs produce identical
// results across runs
func TestEngine_Deterministic(t *testing.T) {
	build := func() (*BacktestResult, error) {
		src := newFakeSource(70_000)
		src.setClose(monday.AddDate(0, 0, 1), 74_000)
		src.setClose(monday.AddDate(0, 0, 8), 66_000)
		src.setMissing(monday.AddDate(0, 0, 3))

		cfg := testConfig(monday, monday.AddDate(0, 0, 25))
		candidates := []types.Candidate{
			candidate(monday, 0.85),
			candidate(monday.AddDate(0, 0, 2), 0.6),
			candidate(monday.AddDate(0, 0, 7), 0.9),
		}
		return NewEngine(cfg, src, zerolog.Nop()).Run(candidates)
	}

	first, err := build()
	require.NoError(t, err)
	second, err := build()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestEngine_EquityCurveInvariants tests basic curve sanity on every run
func TestEngine_EquityCurveInvariants(t *testing.T) {
	src := newFakeSource(70_000)
	src.setClose(monday.AddDate(0, 0, 8), 66_000)

	cfg := testConfig(monday, monday.AddDate(0, 0, 25))
	engine := NewEngine(cfg, src, zerolog.Nop())

	result, err := engine.Run([]types.Candidate{candidate(monday, 0.7)})
	require.NoError(t, err)
	require.NotEmpty(t, result.EquityCurve)

	prev := time.Time{}
	for _, p := range result.EquityCurve {
		assert.True(t, p.Date.After(prev), "curve out of order")
		prev = p.Date
		assert.GreaterOrEqual(t, p.DrawdownPct, 0.0)
		assert.Less(t, p.DrawdownPct, 1.0)
		assert.InDelta(t, p.Cash+p.OpenPositionsValue, p.Equity, 1e-6)
	}
}
