package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/This-HW/hantu-quant-sub002/pkg/reporting"
	"github.com/This-HW/hantu-quant-sub002/pkg/validation"
)

var walkforwardCmd = &cobra.Command{
	Use:   "walkforward",
	Short: "Validate strategy robustness with rolling train/test windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, prices, candidates, err := loadInputs()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		analyzer := validation.NewAnalyzer(cfg.WalkForward, cfg.Backtest, prices, appLog)
		result, err := analyzer.Run(ctx, candidates)
		if err != nil && result == nil {
			return err
		}
		if err != nil {
			appLog.Warn().Err(err).Msg("analysis interrupted, reporting partial result")
		}

		console().PrintWalkForward(result)

		if flagJSONOut != "" {
			if err := reporting.WriteJSON(result, flagJSONOut); err != nil {
				return err
			}
			appLog.Info().Str("path", flagJSONOut).Msg("JSON result written")
		}
		return nil
	},
}
