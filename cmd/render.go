package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/report"
	"github.com/cesoptools/cesopgen/internal/xmlwriter"
)

var renderFlags struct {
	input               string
	outputDir           string
	prefix              string
	transmittingCountry string
	licensedCountries   string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render CESOP XML declarations from a ledger",
	Long: `Render one CESOP 4.03 XML declaration per reporting period and PSP found
in the ledger. With --licensed-countries the payees of each declaration are
split across the listed member states, one declaration per country.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := renderFlags.input
		if !cmd.Flags().Changed("input") {
			input = cfg.LedgerPath
		}
		outputDir := renderFlags.outputDir
		if !cmd.Flags().Changed("output") {
			outputDir = cfg.OutputDir
		}
		prefix := renderFlags.prefix
		if !cmd.Flags().Changed("prefix") {
			prefix = cfg.FilenamePrefix
		}
		transmittingCountry := renderFlags.transmittingCountry
		if !cmd.Flags().Changed("transmitting-country") {
			transmittingCountry = cfg.TransmittingCountry
		}
		licensed := cfg.LicensedCountries
		if cmd.Flags().Changed("licensed-countries") {
			licensed = parseCountryList(renderFlags.licensedCountries)
		}

		recs, err := records.ReadFile(input)
		if err != nil {
			return err
		}

		declarations, err := report.Build(recs, report.Options{
			TransmittingCountry: transmittingCountry,
			LicensedCountries:   licensed,
		})
		if err != nil {
			return err
		}

		writer := xmlwriter.New(prefix)
		paths, err := writer.WriteAll(declarations, outputDir)
		for _, path := range paths {
			log.Info().Str("path", path).Msg("Declaration written")
		}
		if err != nil {
			return err
		}
		log.Info().Int("declarations", len(paths)).Msg("Render complete")
		return nil
	},
}

// parseCountryList splits a comma-separated country list, uppercasing and
// dropping blanks and duplicates while keeping first-seen order.
func parseCountryList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func init() {
	renderCmd.Flags().StringVar(&renderFlags.input, "input", "data/synthetic/payments.csv", "Ledger path")
	renderCmd.Flags().StringVar(&renderFlags.outputDir, "output", "data/output", "Output directory")
	renderCmd.Flags().StringVar(&renderFlags.prefix, "prefix", "cesop", "Output filename prefix")
	renderCmd.Flags().StringVar(&renderFlags.transmittingCountry, "transmitting-country", report.TransmittingCountryAuto, "Transmitting country code, or auto to derive from the PSP BIC")
	renderCmd.Flags().StringVar(&renderFlags.licensedCountries, "licensed-countries", "", "Comma-separated member states to split declarations across")
	rootCmd.AddCommand(renderCmd)
}
