// Package reporting renders backtest and walk-forward results to console,
// JSON, and Excel.
package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/This-HW/hantu-quant-sub002/internal/backtest"
	"github.com/This-HW/hantu-quant-sub002/pkg/validation"
)

// ConsoleReporter renders results as rounded tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a console reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// PrintBacktest renders the run summary table plus a per-trade table.
func (r *ConsoleReporter) PrintBacktest(result *backtest.BacktestResult) {
	if result.Empty {
		fmt.Fprintf(r.out, "no simulation performed: %s\n", result.EmptyReason)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Backtest Summary")
	t.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s → %s", result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))},
		{"Start Balance", fmt.Sprintf("%.0f KRW", result.StartBalance)},
		{"End Balance", fmt.Sprintf("%.0f KRW", result.EndBalance)},
		{"Total Return", fmt.Sprintf("%.2f%%", result.TotalReturn*100)},
		{"Win Rate", fmt.Sprintf("%.1f%%", result.WinRate*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", result.SharpeRatio)},
		{"Sortino Ratio", fmt.Sprintf("%.2f", result.SortinoRatio)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdown*100)},
		{"Trades", fmt.Sprintf("%d (%d won / %d lost)", result.TradeCount, result.WinningTrades, result.LosingTrades)},
		{"Diagnostics", fmt.Sprintf("%d", len(result.Diagnostics))},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, Align: text.AlignLeft},
	})
	t.Render()

	if len(result.Trades) > 0 {
		r.printTrades(result)
	}
}

func (r *ConsoleReporter) printTrades(result *backtest.BacktestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Trades")
	t.AppendHeader(table.Row{"Symbol", "Entry", "Exit", "Days", "Qty", "Reason", "Net Return"})
	for _, tr := range result.Trades {
		t.AppendRow(table.Row{
			tr.Symbol,
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			tr.DaysHeld,
			tr.Quantity,
			tr.ExitReason.String(),
			fmt.Sprintf("%+.2f%%", tr.NetReturn*100),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// PrintWalkForward renders the per-window table and the aggregate judgment.
func (r *ConsoleReporter) PrintWalkForward(result *validation.WalkForwardResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Walk-Forward Windows")
	t.AppendHeader(table.Row{"#", "Train", "Test", "Train Sharpe", "Test Sharpe", "Test Return", "Ratio"})
	for _, w := range result.Windows {
		ratio := "n/a"
		if w.OverfittingDefined {
			ratio = fmt.Sprintf("%.2f", w.OverfittingRatio)
		}
		t.AppendRow(table.Row{
			w.Window,
			fmt.Sprintf("%s → %s", w.TrainStart.Format("01-02"), w.TrainEnd.Format("01-02")),
			fmt.Sprintf("%s → %s", w.TestStart.Format("01-02"), w.TestEnd.Format("01-02")),
			fmt.Sprintf("%.2f", w.TrainMetrics.SharpeRatio),
			fmt.Sprintf("%.2f", w.TestMetrics.SharpeRatio),
			fmt.Sprintf("%+.2f%%", w.TestMetrics.TotalReturn*100),
			ratio,
		})
	}
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(r.out)
	s.SetStyle(table.StyleRounded)
	s.SetTitle("Robustness")
	ratio := "undefined"
	if result.OverfittingDefined {
		ratio = fmt.Sprintf("%.2f", result.OverfittingRatio)
	}
	s.AppendRows([]table.Row{
		{"Windows", fmt.Sprintf("%d completed, %d skipped", len(result.Windows), result.WindowsSkipped)},
		{"Mean Train Sharpe", fmt.Sprintf("%.2f", result.MeanTrainSharpe)},
		{"Mean Test Sharpe", fmt.Sprintf("%.2f", result.MeanTestSharpe)},
		{"Overfitting Ratio", ratio},
		{"Consistency (std)", fmt.Sprintf("%.4f", result.ConsistencyScore)},
		{"Acceptable", verdict(result.Acceptable)},
		{"Stable", verdict(result.Stable)},
	})
	s.Render()
}

// PrintSweep renders the sweep leaderboard sorted as given.
func (r *ConsoleReporter) PrintSweep(results []backtest.SweepResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Parameter Sweep")
	t.AppendHeader(table.Row{"ID", "Return", "Sharpe", "Max DD", "Trades", "Duration", "Status"})
	for _, sr := range results {
		if sr.Err != nil {
			t.AppendRow(table.Row{sr.ID, "-", "-", "-", "-", sr.Duration.Round(time.Millisecond), sr.Err.Error()})
			continue
		}
		t.AppendRow(table.Row{
			sr.ID,
			fmt.Sprintf("%+.2f%%", sr.Result.TotalReturn*100),
			fmt.Sprintf("%.2f", sr.Result.SharpeRatio),
			fmt.Sprintf("%.2f%%", sr.Result.MaxDrawdown*100),
			sr.Result.TradeCount,
			sr.Duration.Round(time.Millisecond),
			"ok",
		})
	}
	t.Render()
}

func verdict(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
