package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/This-HW/hantu-quant-sub002/internal/backtest"
	"github.com/This-HW/hantu-quant-sub002/pkg/validation"
)

// ExcelReporter writes multi-sheet workbooks for offline analysis.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header int
	date   int
	pct    int
	money  int
}

// WriteBacktestXLSX writes Trades and Equity sheets, plus Windows when a
// walk-forward result is supplied (nil is fine).
func (r *ExcelReporter) WriteBacktestXLSX(result *backtest.BacktestResult, wf *validation.WalkForwardResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const equitySheet = "Equity"
	const windowsSheet = "Windows"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(equitySheet)
	if wf != nil {
		fx.NewSheet(windowsSheet)
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result, styles); err != nil {
		return err
	}
	if wf != nil {
		if err := r.writeWindowsSheet(fx, windowsSheet, wf, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	s.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F5496"}, Pattern: 1},
	})
	if err != nil {
		return s, err
	}
	s.date, err = fx.NewStyle(&excelize.Style{CustomNumFmt: strPtr("yyyy-mm-dd")})
	if err != nil {
		return s, err
	}
	s.pct, err = fx.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.00%")})
	if err != nil {
		return s, err
	}
	s.money, err = fx.NewStyle(&excelize.Style{CustomNumFmt: strPtr("#,##0")})
	return s, err
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.BacktestResult, styles excelStyles) error {
	headers := []string{"Symbol", "State", "Entry Date", "Entry Price", "Quantity", "Stop Loss", "Take Profit", "Exit Date", "Exit Price", "Exit Reason", "Days Held", "Realized PnL", "Gross Return", "Net Return"}
	if err := r.writeHeader(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, t := range result.Trades {
		row := i + 2
		cells := []interface{}{
			t.Symbol, t.State.String(),
			t.EntryDate.Format("2006-01-02"), t.EntryPrice, t.Quantity,
			t.StopLossPrice, t.TakeProfitPrice,
			t.ExitDate.Format("2006-01-02"), t.ExitPrice, t.ExitReason.String(),
			t.DaysHeld, t.RealizedPnL, t.GrossReturn, t.NetReturn,
		}
		for col, v := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if len(result.Trades) > 0 {
		last := len(result.Trades) + 1
		fx.SetCellStyle(sheet, "M2", fmt.Sprintf("N%d", last), styles.pct)
		fx.SetCellStyle(sheet, "L2", fmt.Sprintf("L%d", last), styles.money)
	}
	return nil
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, result *backtest.BacktestResult, styles excelStyles) error {
	headers := []string{"Date", "Cash", "Open Value", "Realized PnL", "Equity", "Drawdown"}
	if err := r.writeHeader(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, p := range result.EquityCurve {
		row := i + 2
		cells := []interface{}{
			p.Date.Format("2006-01-02"), p.Cash, p.OpenPositionsValue, p.RealizedPnL, p.Equity, p.DrawdownPct,
		}
		for col, v := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if len(result.EquityCurve) > 0 {
		last := len(result.EquityCurve) + 1
		fx.SetCellStyle(sheet, "B2", fmt.Sprintf("E%d", last), styles.money)
		fx.SetCellStyle(sheet, "F2", fmt.Sprintf("F%d", last), styles.pct)
	}
	return nil
}

func (r *ExcelReporter) writeWindowsSheet(fx *excelize.File, sheet string, wf *validation.WalkForwardResult, styles excelStyles) error {
	headers := []string{"Window", "Train Start", "Train End", "Test Start", "Test End", "Train Sharpe", "Test Sharpe", "Train Return", "Test Return", "Overfitting Ratio"}
	if err := r.writeHeader(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, w := range wf.Windows {
		row := i + 2
		var ratio interface{} = "n/a"
		if w.OverfittingDefined {
			ratio = w.OverfittingRatio
		}
		cells := []interface{}{
			w.Window,
			w.TrainStart.Format("2006-01-02"), w.TrainEnd.Format("2006-01-02"),
			w.TestStart.Format("2006-01-02"), w.TestEnd.Format("2006-01-02"),
			w.TrainMetrics.SharpeRatio, w.TestMetrics.SharpeRatio,
			w.TrainMetrics.TotalReturn, w.TestMetrics.TotalReturn,
			ratio,
		}
		for col, v := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if len(wf.Windows) > 0 {
		last := len(wf.Windows) + 1
		fx.SetCellStyle(sheet, "H2", fmt.Sprintf("I%d", last), styles.pct)
	}
	return nil
}

func (r *ExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	end, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, "A1", end, style)
}

func strPtr(s string) *string {
	return &s
}
