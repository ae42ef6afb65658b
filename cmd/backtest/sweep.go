package main

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"

	"github.com/This-HW/hantu-quant-sub002/internal/backtest"
	"github.com/This-HW/hantu-quant-sub002/internal/monitoring"
	"github.com/This-HW/hantu-quant-sub002/pkg/reporting"
)

var (
	flagSweepHoldingDays []int
	flagSweepTakeProfits []float64
	flagSweepWorkers     int
	flagMetricsAddr      string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parallel parameter sweep over exit-rule variations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, prices, candidates, err := loadInputs()
		if err != nil {
			return err
		}

		if flagMetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", monitoring.Handler())
				if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
					appLog.Warn().Err(err).Msg("metrics server stopped")
				}
			}()
			appLog.Info().Str("addr", flagMetricsAddr).Msg("metrics server listening")
		}

		var configs []backtest.Config
		var ids []string
		for _, days := range flagSweepHoldingDays {
			for _, tp := range flagSweepTakeProfits {
				c := cfg.Backtest
				c.MaxHoldingDays = days
				c.Stops.TakeProfitPct = tp
				configs = append(configs, c)
				ids = append(ids, fmt.Sprintf("hold%d_tp%.0f", days, tp*100))
			}
		}
		if len(configs) == 0 {
			return fmt.Errorf("sweep grid is empty, set --holding-days and --take-profit")
		}
		appLog.Info().Int("jobs", len(configs)).Int("workers", flagSweepWorkers).Msg("sweep starting")

		results := backtest.RunSweep(configs, ids, candidates, prices, flagSweepWorkers, appLog)

		// Leaderboard: best Sharpe first, failures last.
		sort.SliceStable(results, func(i, j int) bool {
			if (results[i].Err == nil) != (results[j].Err == nil) {
				return results[i].Err == nil
			}
			if results[i].Err != nil {
				return false
			}
			return results[i].Result.SharpeRatio > results[j].Result.SharpeRatio
		})

		console().PrintSweep(results)

		if flagJSONOut != "" {
			if err := reporting.WriteJSON(results, flagJSONOut); err != nil {
				return err
			}
			appLog.Info().Str("path", flagJSONOut).Msg("JSON result written")
		}
		return nil
	},
}

func init() {
	f := sweepCmd.Flags()
	f.IntSliceVar(&flagSweepHoldingDays, "holding-days", []int{5, 10, 15}, "max holding day values to sweep")
	f.Float64SliceVar(&flagSweepTakeProfits, "take-profit", []float64{0.06, 0.08, 0.10}, "take-profit fractions to sweep")
	f.IntVar(&flagSweepWorkers, "workers", 0, "worker count (0 = NumCPU)")
	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the sweep")
}
