package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/analysis"
	"github.com/cesoptools/cesopgen/internal/records"
)

var analyzeFlags struct {
	input          string
	threshold      int
	includeRefunds bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report which payees exceed the cross-border transaction threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := analyzeFlags.threshold
		if !cmd.Flags().Changed("threshold") {
			threshold = cfg.Threshold
		}
		input := analyzeFlags.input
		if !cmd.Flags().Changed("input") {
			input = cfg.LedgerPath
		}

		recs, err := records.ReadFile(input)
		if err != nil {
			return err
		}
		stats, err := analysis.AnalyzeStats(recs, threshold, analyzeFlags.includeRefunds)
		if err != nil {
			return err
		}
		logStats(stats)
		return nil
	},
}

func logStats(stats analysis.Stats) {
	log.Info().
		Int("threshold", stats.Threshold).
		Int("total_records", stats.TotalRecords).
		Int("cross_border_records", stats.CrossBorderRecords).
		Int("total_payees", stats.TotalPayees).
		Msg("Threshold check")
	log.Info().
		Int("payees_over_threshold", stats.PayeesOverThreshold).
		Msg("Payees over threshold")
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.input, "input", "data/synthetic/payments.csv", "Ledger path")
	analyzeCmd.Flags().IntVar(&analyzeFlags.threshold, "threshold", analysis.DefaultThreshold, "Reporting threshold")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.includeRefunds, "include-refunds", false, "Count refunds toward the threshold")
	rootCmd.AddCommand(analyzeCmd)
}
