package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/analysis"
	"github.com/cesoptools/cesopgen/internal/generator"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/pkg/utils"
)

var generateFlags struct {
	scale             int
	seed              int64
	psps              int
	multiAccountRatio float64
	nonEUPayeeRatio   float64
	noAccountRatio    float64
	output            string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic payment ledger",
	Long: `Generate a synthetic quarterly payment ledger with a realistic payee mix:
mostly payees below the reporting threshold, a band straddling it, and a few
high-volume merchants well above it. The current quarter is used as the
reporting period.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := generateFlags.seed
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}

		now := time.Now().UTC()
		year := now.Year()
		quarter := (int(now.Month())-1)/3 + 1

		plan, err := generator.DerivePlan(generateFlags.scale)
		if err != nil {
			return err
		}
		gcfg := generator.Config{
			Records:             plan.Records,
			Payees:              plan.Payees,
			MicroPayees:         plan.MicroPayees,
			NearThresholdPayees: plan.NearThresholdPayees,
			LargePayees:         plan.LargePayees,
			PSPs:                generateFlags.psps,
			CrossBorderRatio:    0.8,
			RefundRatio:         0.02,
			MultiAccountRatio:   generateFlags.multiAccountRatio,
			NonEUPayeeRatio:     generateFlags.nonEUPayeeRatio,
			NoAccountRatio:      generateFlags.noAccountRatio,
			Year:                year,
			Quarter:             quarter,
		}

		log.Info().
			Int("scale", generateFlags.scale).
			Int("payees", plan.Payees).
			Int("micro", plan.MicroPayees).
			Int("near_threshold", plan.NearThresholdPayees).
			Int("large", plan.LargePayees).
			Int64("seed", seed).
			Msg("Generating records")

		start := time.Now()
		recs, err := generator.Generate(gcfg, seed)
		if err != nil {
			return err
		}
		log.Info().
			Int("records", len(recs)).
			Dur("elapsed", time.Since(start)).
			Msg("Generation complete")

		if err := utils.EnsureDir(filepath.Dir(generateFlags.output)); err != nil {
			return err
		}
		if err := records.WriteFile(generateFlags.output, recs); err != nil {
			return err
		}
		log.Info().Str("path", generateFlags.output).Msg("Ledger written")

		stats, err := analysis.AnalyzeStats(recs, analysis.DefaultThreshold, false)
		if err != nil {
			return err
		}
		logStats(stats)
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateFlags.scale, "scale", 1200, "Target number of records")
	generateCmd.Flags().Int64Var(&generateFlags.seed, "seed", 0, "Random seed (default: time-based)")
	generateCmd.Flags().IntVar(&generateFlags.psps, "psps", 1, "Number of reporting PSPs")
	generateCmd.Flags().Float64Var(&generateFlags.multiAccountRatio, "multi-account-ratio", 0.15, "Fraction of payees with an extra BIC identifier")
	generateCmd.Flags().Float64Var(&generateFlags.nonEUPayeeRatio, "non-eu-payee-ratio", 0.10, "Fraction of payees homed outside the EU")
	generateCmd.Flags().Float64Var(&generateFlags.noAccountRatio, "no-account-payee-ratio", 0.02, "Fraction of payees without account identifiers")
	generateCmd.Flags().StringVar(&generateFlags.output, "output", "data/synthetic/payments.csv", "Output ledger path")
	rootCmd.AddCommand(generateCmd)
}
