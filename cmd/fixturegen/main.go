// Command fixturegen writes synthetic card ledger and settlement statement
// exports for load and end-to-end testing of the reconciler.
package main

import (
	"fmt"
	"os"
	"time"

	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		outputDir string
		startDate string
		g         Generator
	)

	cmd := &cobra.Command{
		Use:   "fixturegen",
		Short: "Generate synthetic ledger and statement CSV files",
		Long: `Generate one ledger export and one settlement statement per card.

Examples:
  fixturegen --cards 20 --rows 500 --output-dir ./generated
  fixturegen --cards 3 --missing-rate 0.1 --diff-rate 0.05 --seed 42`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", startDate)
			if err != nil {
				return errors.ConfigurationError(errors.CodeInvalidConfig, "start-date", startDate, err)
			}
			g.StartDate = start
			if err := g.Validate(); err != nil {
				return err
			}

			cards, expected := g.Generate()
			paths, err := g.Write(outputDir, cards)
			if err != nil {
				return err
			}

			logger.WithComponent("fixturegen").WithFields(logger.Fields{
				"files": len(paths),
				"seed":  g.Seed,
				"dir":   outputDir,
			}).Info("Fixtures written")
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d files in %s (cutoff %s)\n", len(paths), outputDir, startDate)
			fmt.Fprintf(cmd.OutOrStdout(), "Expected: %+v\n", expected)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputDir, "output-dir", "o", "generated", "output directory")
	flags.StringVar(&startDate, "start-date", "2026-01-01", "first transaction day, also the cutoff to reconcile with (YYYY-MM-DD)")
	flags.IntVar(&g.Cards, "cards", 5, "number of cards")
	flags.IntVar(&g.Rows, "rows", 100, "incoming and outgoing rows per card")
	flags.IntVar(&g.Days, "days", 28, "number of days the rows are spread over")
	flags.Float64Var(&g.MissingRate, "missing-rate", 0.05, "share of rows present on one side only")
	flags.Float64Var(&g.DiffRate, "diff-rate", 0.02, "share of incoming pairs whose amounts disagree")
	flags.Int64Var(&g.Seed, "seed", time.Now().UnixNano(), "random seed for reproducible generation")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.GetExitCode(err))
	}
}
