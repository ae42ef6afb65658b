// Command backtest replays historical trading candidates against real price
// series, validates strategies with rolling walk-forward windows, and runs
// parameter sweeps.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
