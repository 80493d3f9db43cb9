package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/corrupt"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/pkg/utils"
)

var corruptFlags struct {
	input          string
	output         string
	payeeErrorRate float64
	txErrorRate    float64
	seed           int64
}

var corruptCmd = &cobra.Command{
	Use:   "corrupt",
	Short: "Inject data-quality faults into a ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := corruptFlags.seed
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}

		recs, err := records.ReadFile(corruptFlags.input)
		if err != nil {
			return err
		}
		summary, err := corrupt.Corrupt(recs, corruptFlags.payeeErrorRate, corruptFlags.txErrorRate, seed)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(filepath.Dir(corruptFlags.output)); err != nil {
			return err
		}
		if err := records.WriteFile(corruptFlags.output, recs); err != nil {
			return err
		}

		log.Info().
			Int("payees_targeted", summary.PayeesTargeted).
			Int("payee_name_missing", summary.PayeeNameMissing).
			Int("payee_country_invalid", summary.PayeeCountryInvalid).
			Int("account_type_invalid", summary.AccountTypeInvalid).
			Int("account_value_invalid", summary.AccountValueInvalid).
			Msg("Payee faults injected")
		log.Info().
			Int("currency_invalid", summary.TxCurrencyInvalid).
			Int("payer_country_invalid", summary.TxPayerCountryInvalid).
			Int("payer_source_invalid", summary.TxPayerSourceInvalid).
			Msg("Transaction faults injected")
		log.Info().Str("path", corruptFlags.output).Msg("Corrupted ledger written")
		return nil
	},
}

func init() {
	corruptCmd.Flags().StringVar(&corruptFlags.input, "input", "data/synthetic/payments.csv", "Ledger path")
	corruptCmd.Flags().StringVar(&corruptFlags.output, "output", "data/synthetic/payments_invalid.csv", "Output ledger path")
	corruptCmd.Flags().Float64Var(&corruptFlags.payeeErrorRate, "payee-error-rate", 0.02, "Fraction of payees to corrupt")
	corruptCmd.Flags().Float64Var(&corruptFlags.txErrorRate, "tx-error-rate", 0.01, "Per-record corruption chance")
	corruptCmd.Flags().Int64Var(&corruptFlags.seed, "seed", 0, "Random seed (default: time-based)")
	rootCmd.AddCommand(corruptCmd)
}
