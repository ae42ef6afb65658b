package main

import (
	"github.com/spf13/cobra"

	"github.com/This-HW/hantu-quant-sub002/internal/backtest"
	"github.com/This-HW/hantu-quant-sub002/pkg/reporting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest over the configured date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, prices, candidates, err := loadInputs()
		if err != nil {
			return err
		}

		engine := backtest.NewEngine(cfg.Backtest, prices, appLog)
		result, err := engine.Run(candidates)
		if err != nil {
			return err
		}

		console().PrintBacktest(result)

		if flagJSONOut != "" {
			if err := reporting.WriteJSON(result, flagJSONOut); err != nil {
				return err
			}
			appLog.Info().Str("path", flagJSONOut).Msg("JSON result written")
		}
		if flagXLSXOut != "" {
			if err := reporting.NewExcelReporter().WriteBacktestXLSX(result, nil, flagXLSXOut); err != nil {
				return err
			}
			appLog.Info().Str("path", flagXLSXOut).Msg("workbook written")
		}
		return nil
	},
}
