package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/analysis"
	"github.com/cesoptools/cesopgen/internal/preflight"
	"github.com/cesoptools/cesopgen/internal/records"
)

var preflightFlags struct {
	input          string
	threshold      int
	includeRefunds bool
	workbook       string
}

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Validate a ledger before rendering",
	Long: `Check every record of a ledger for field-level and cross-record problems
that would produce a rejected declaration, and summarize reportability at the
configured threshold. With --workbook the findings are also saved as an XLSX
file for review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := preflightFlags.threshold
		if !cmd.Flags().Changed("threshold") {
			threshold = cfg.Threshold
		}
		input := preflightFlags.input
		if !cmd.Flags().Changed("input") {
			input = cfg.LedgerPath
		}

		recs, err := records.ReadFile(input)
		if err != nil {
			return err
		}
		rep, err := preflight.Check(recs, threshold, preflightFlags.includeRefunds)
		if err != nil {
			return err
		}

		for _, issue := range rep.Issues {
			event := log.Warn()
			if issue.Level == preflight.LevelError {
				event = log.Error()
			}
			event.Int("row", issue.Row).Msg(issue.Message)
		}
		logStats(rep.Stats)
		log.Info().
			Int("errors", rep.ErrorCount()).
			Int("warnings", rep.WarningCount()).
			Msg("Preflight complete")

		if preflightFlags.workbook != "" {
			if err := preflight.WriteWorkbook(&rep, preflightFlags.workbook); err != nil {
				return err
			}
			log.Info().Str("path", preflightFlags.workbook).Msg("Workbook written")
		}

		if n := rep.ErrorCount(); n > 0 {
			return fmt.Errorf("preflight found %d errors", n)
		}
		return nil
	},
}

func init() {
	preflightCmd.Flags().StringVar(&preflightFlags.input, "input", "data/synthetic/payments.csv", "Ledger path")
	preflightCmd.Flags().IntVar(&preflightFlags.threshold, "threshold", analysis.DefaultThreshold, "Reporting threshold")
	preflightCmd.Flags().BoolVar(&preflightFlags.includeRefunds, "include-refunds", false, "Count refunds toward the threshold")
	preflightCmd.Flags().StringVar(&preflightFlags.workbook, "workbook", "", "Optional XLSX report path")
	rootCmd.AddCommand(preflightCmd)
}
