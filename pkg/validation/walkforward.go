package validation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/This-HW/hantu-quant-sub002/internal/backtest"
	"github.com/This-HW/hantu-quant-sub002/internal/engerr"
	"github.com/This-HW/hantu-quant-sub002/internal/monitoring"
	"github.com/This-HW/hantu-quant-sub002/pkg/data"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// Config holds the walk-forward layout and judgment thresholds.
type Config struct {
	TrainDays      int `json:"train_days" mapstructure:"train_days"`
	TestDays       int `json:"test_days" mapstructure:"test_days"`
	StepDays       int `json:"step_days" mapstructure:"step_days"`
	PurgeDays      int `json:"purge_days" mapstructure:"purge_days"`
	MinTrainTrades int `json:"min_train_trades" mapstructure:"min_train_trades"`

	Thresholds Thresholds `json:"thresholds" mapstructure:"thresholds"`
}

// Thresholds are the robustness judgments. They are data, not control flow,
// so callers and tests can override them per run.
type Thresholds struct {
	// MinOverfittingRatio is the smallest acceptable test/train Sharpe
	// ratio.
	MinOverfittingRatio float64 `json:"min_overfitting_ratio" mapstructure:"min_overfitting_ratio"`
	// MaxConsistencyStd is the largest test-return dispersion across
	// windows still judged stable.
	MaxConsistencyStd float64 `json:"max_consistency_std" mapstructure:"max_consistency_std"`
}

// DefaultConfig returns the documented walk-forward layout: 180-day train,
// 30-day test, step = test window, 5-day purge.
func DefaultConfig() Config {
	return Config{
		TrainDays:      180,
		TestDays:       30,
		StepDays:       30,
		PurgeDays:      5,
		MinTrainTrades: 5,
		Thresholds: Thresholds{
			MinOverfittingRatio: 0.5,
			MaxConsistencyStd:   0.05,
		},
	}
}

// Metrics is the per-segment performance summary carried by a WindowResult.
type Metrics struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	TradeCount  int     `json:"trade_count"`
}

func metricsOf(r *backtest.BacktestResult) Metrics {
	return Metrics{
		TotalReturn: r.TotalReturn,
		SharpeRatio: r.SharpeRatio,
		MaxDrawdown: r.MaxDrawdown,
		WinRate:     r.WinRate,
		TradeCount:  r.TradeCount,
	}
}

// WindowResult is the immutable outcome of one rolling window.
type WindowResult struct {
	Window     int       `json:"window"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`

	TrainMetrics Metrics `json:"train_metrics"`
	TestMetrics  Metrics `json:"test_metrics"`

	// OverfittingRatio is test Sharpe / train Sharpe for this window. When
	// train Sharpe is ~0 the ratio is undefined: Defined is false and the
	// value stays 0, never Inf.
	OverfittingRatio   float64 `json:"overfitting_ratio"`
	OverfittingDefined bool    `json:"overfitting_defined"`
	TradeCount         int     `json:"trade_count"`
}

// WalkForwardResult aggregates all windows of one analysis run.
type WalkForwardResult struct {
	Windows        []WindowResult `json:"windows"`
	WindowsSkipped int            `json:"windows_skipped"`

	MeanTrainSharpe float64 `json:"mean_train_sharpe"`
	MeanTestSharpe  float64 `json:"mean_test_sharpe"`

	// OverfittingRatio is mean test Sharpe over mean train Sharpe across
	// completed windows; undefined when the denominator is ~0 (Defined is
	// false and the value stays 0, never Inf).
	OverfittingRatio   float64 `json:"overfitting_ratio"`
	OverfittingDefined bool    `json:"overfitting_defined"`

	// ConsistencyScore is the stddev of test returns across windows;
	// lower is more consistent.
	ConsistencyScore float64 `json:"consistency_score"`

	Acceptable bool `json:"acceptable"`
	Stable     bool `json:"stable"`

	Diagnostics []engerr.Diagnostic `json:"diagnostics"`
}

// Analyzer runs rolling walk-forward validation. Windows execute
// sequentially and independently: every window gets its own engine and
// circuit-breaker tree, so nothing leaks between windows or between train
// and test.
type Analyzer struct {
	cfg      Config
	btConfig backtest.Config
	splitter *Splitter
	prices   data.PriceSource
	log      zerolog.Logger
}

// NewAnalyzer creates a walk-forward analyzer over the given price
// collaborator.
func NewAnalyzer(cfg Config, btConfig backtest.Config, prices data.PriceSource, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		btConfig: btConfig,
		splitter: NewSplitter(cfg.PurgeDays),
		prices:   prices,
		log:      logger.With().Str("component", "walkforward").Logger(),
	}
}

// Run executes the rolling analysis. Cancellation is cooperative: the
// context is checked at each window boundary and the partial result is
// returned alongside ctx.Err(). A failing or thin window is skipped with a
// diagnostic; it never aborts the other windows.
func (a *Analyzer) Run(ctx context.Context, candidates []types.Candidate) (*WalkForwardResult, error) {
	windows, err := a.splitter.RollingWindows(candidates, a.cfg.TrainDays, a.cfg.TestDays, a.cfg.StepDays)
	if err != nil {
		return nil, err
	}
	a.log.Info().Int("windows", len(windows)).Msg("walk-forward layout ready")

	result := &WalkForwardResult{Diagnostics: []engerr.Diagnostic{}}

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			a.finalize(result)
			return result, err
		}

		wr, skip := a.runWindow(w)
		if skip != "" {
			result.WindowsSkipped++
			result.Diagnostics = append(result.Diagnostics, engerr.Diagnostic{
				Kind: engerr.DiagWindowSkipped, Date: w.TrainStart,
				Detail: fmt.Sprintf("window %d: %s", w.Index, skip),
			})
			monitoring.RecordWindow("skipped")
			a.log.Warn().Int("window", w.Index).Str("reason", skip).Msg("window skipped")
			continue
		}
		result.Windows = append(result.Windows, wr)
		monitoring.RecordWindow("completed")
	}

	a.finalize(result)
	return result, nil
}

// runWindow backtests one fold's train and test segments independently.
// The returned skip reason is non-empty when the window must be discarded.
func (a *Analyzer) runWindow(w Window) (WindowResult, string) {
	trainResult, err := a.runSegment(w.Train, w.TrainStart, w.TrainEnd)
	if err != nil {
		return WindowResult{}, fmt.Sprintf("train segment failed: %v", err)
	}
	if trainResult.TradeCount < a.cfg.MinTrainTrades {
		return WindowResult{}, fmt.Sprintf("train trade count %d below minimum %d", trainResult.TradeCount, a.cfg.MinTrainTrades)
	}
	testResult, err := a.runSegment(w.Test, w.TestStart, w.TestEnd)
	if err != nil {
		return WindowResult{}, fmt.Sprintf("test segment failed: %v", err)
	}

	wr := WindowResult{
		Window:       w.Index,
		TrainStart:   w.TrainStart,
		TrainEnd:     w.TrainEnd,
		TestStart:    w.TestStart,
		TestEnd:      w.TestEnd,
		TrainMetrics: metricsOf(trainResult),
		TestMetrics:  metricsOf(testResult),
		TradeCount:   trainResult.TradeCount + testResult.TradeCount,
	}
	if math.Abs(trainResult.SharpeRatio) > 1e-10 {
		wr.OverfittingRatio = testResult.SharpeRatio / trainResult.SharpeRatio
		wr.OverfittingDefined = true
	}
	return wr, ""
}

// runSegment runs an independent backtest over [start, end). The segment
// owns its whole instance tree.
func (a *Analyzer) runSegment(candidates []types.Candidate, start, end time.Time) (*backtest.BacktestResult, error) {
	cfg := a.btConfig
	cfg.StartDate = start
	cfg.EndDate = end.AddDate(0, 0, -1)
	engine := backtest.NewEngine(cfg, a.prices, a.log)
	return engine.Run(candidates)
}

// finalize computes the aggregate robustness metrics and judgments.
func (a *Analyzer) finalize(r *WalkForwardResult) {
	if len(r.Windows) == 0 {
		return
	}

	var trainSharpes, testSharpes, testReturns []float64
	for _, w := range r.Windows {
		trainSharpes = append(trainSharpes, w.TrainMetrics.SharpeRatio)
		testSharpes = append(testSharpes, w.TestMetrics.SharpeRatio)
		testReturns = append(testReturns, w.TestMetrics.TotalReturn)
	}

	r.MeanTrainSharpe = average(trainSharpes)
	r.MeanTestSharpe = average(testSharpes)

	if math.Abs(r.MeanTrainSharpe) > 1e-10 {
		r.OverfittingRatio = r.MeanTestSharpe / r.MeanTrainSharpe
		r.OverfittingDefined = true
	}

	r.ConsistencyScore = stdDev(testReturns)
	r.Acceptable = r.OverfittingDefined && r.OverfittingRatio >= a.cfg.Thresholds.MinOverfittingRatio
	r.Stable = r.ConsistencyScore < a.cfg.Thresholds.MaxConsistencyStd
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	avg := average(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
