package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/correct"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/pkg/utils"
)

var correctFlags struct {
	input  string
	output string
	seed   int64
}

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Repair a faulty ledger into a renderable one",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := correctFlags.seed
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}

		recs, err := records.ReadFile(correctFlags.input)
		if err != nil {
			return err
		}
		summary, err := correct.Correct(recs, seed)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(filepath.Dir(correctFlags.output)); err != nil {
			return err
		}
		if err := records.WriteFile(correctFlags.output, recs); err != nil {
			return err
		}

		log.Info().
			Int("total_records", summary.TotalRecords).
			Int("corrected_records", summary.CorrectedRecords).
			Msg("Correction complete")
		log.Info().
			Int("payee_name", summary.PayeeNameFixed).
			Int("payee_country", summary.PayeeCountryFixed).
			Int("account_type", summary.PayeeAccountTypeFixed).
			Int("account_value", summary.PayeeAccountValueFixed).
			Int("payer_country", summary.PayerCountryFixed).
			Int("payer_source", summary.PayerSourceFixed).
			Int("currency", summary.CurrencyFixed).
			Int("execution_time", summary.ExecutionTimeFixed).
			Msg("Fixes applied")
		log.Info().Str("path", correctFlags.output).Msg("Corrected ledger written")
		return nil
	},
}

func init() {
	correctCmd.Flags().StringVar(&correctFlags.input, "input", "data/synthetic/payments_invalid.csv", "Ledger path")
	correctCmd.Flags().StringVar(&correctFlags.output, "output", "data/synthetic/payments_corrected.csv", "Output ledger path")
	correctCmd.Flags().Int64Var(&correctFlags.seed, "seed", 0, "Random seed (default: time-based)")
	rootCmd.AddCommand(correctCmd)
}
