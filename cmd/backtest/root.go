package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/This-HW/hantu-quant-sub002/internal/config"
	"github.com/This-HW/hantu-quant-sub002/internal/logging"
	"github.com/This-HW/hantu-quant-sub002/pkg/data"
	"github.com/This-HW/hantu-quant-sub002/pkg/reporting"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

var (
	flagConfig     string
	flagEnvFile    string
	flagLogLevel   string
	flagPrices     string
	flagCandidates string
	flagStart      string
	flagEnd        string
	flagJSONOut    string
	flagXLSXOut    string

	appLog zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Cost-aware strategy backtesting and walk-forward validation",
	Long: `Replays historical trading candidates against daily price series under
commission/tax/slippage costs, ATR-tiered stops, Kelly position sizing, and a
drawdown circuit breaker.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagEnvFile != "" {
			if err := godotenv.Load(flagEnvFile); err != nil {
				return fmt.Errorf("loading env file %s: %w", flagEnvFile, err)
			}
		}
		logCfg := logging.DefaultConfig()
		if flagLogLevel != "" {
			logCfg.Level = flagLogLevel
		}
		appLog = logging.NewWithConfig(logCfg)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "path to YAML/JSON config file")
	pf.StringVar(&flagEnvFile, "env", "", "path to .env file to load")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&flagPrices, "prices", "", "path to daily price CSV (symbol,date,open,high,low,close,volume)")
	pf.StringVar(&flagCandidates, "candidates", "", "path to candidate CSV (symbol,candidate_date,entry_price,signal_confidence)")
	pf.StringVar(&flagStart, "start", "", "simulation start date (YYYY-MM-DD)")
	pf.StringVar(&flagEnd, "end", "", "simulation end date (YYYY-MM-DD)")
	pf.StringVar(&flagJSONOut, "json-out", "", "write the result as JSON to this path")
	pf.StringVar(&flagXLSXOut, "xlsx-out", "", "write the result workbook to this path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(walkforwardCmd)
	rootCmd.AddCommand(sweepCmd)
}

// loadInputs loads config, prices, and candidates from the shared flags.
func loadInputs() (*config.Config, *data.CSVPriceSource, []types.Candidate, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.DateRange(flagStart, flagEnd); err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	if flagPrices == "" {
		return nil, nil, nil, fmt.Errorf("--prices is required")
	}
	prices, err := data.LoadCSVPriceSource(flagPrices)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading prices: %w", err)
	}

	if flagCandidates == "" {
		return nil, nil, nil, fmt.Errorf("--candidates is required")
	}
	candSource, err := data.LoadCSVCandidateSource(flagCandidates)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading candidates: %w", err)
	}
	candidates, err := candSource.Candidates(cfg.Backtest.StartDate, cfg.Backtest.EndDate)
	if err != nil {
		return nil, nil, nil, err
	}

	appLog.Info().
		Int("candidates", len(candidates)).
		Str("prices", flagPrices).
		Msg("inputs loaded")
	return cfg, prices, candidates, nil
}

func console() *reporting.ConsoleReporter {
	return reporting.NewConsoleReporter(os.Stdout)
}
