package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "oraclewatch"
	version = "v0.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Price integrity and manipulation detection for oracle feeds",
		Version: version,
		Long: `oraclewatch analyzes oracle price feeds and on-chain transaction metadata
for statistically anomalous or adversarially-patterned behavior: price
manipulation, flash-loan attacks, sandwich attacks, and liquidity drains.

The engine itself is a library; this CLI replays recorded feed snapshots
through it for offline analysis and tuning.`,
	}

	rootCmd.AddCommand(newReplayCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
