// Package cmd wires the command-line interface: one subcommand per pipeline
// stage, with global configuration and logging set up on the root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/config"
	"github.com/cesoptools/cesopgen/internal/logger"
)

var (
	cfgFile string
	verbose bool

	// cfg and log are initialized before any subcommand runs.
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cesopgen",
	Short: "CESOP reporting toolchain: synthetic ledgers, threshold analysis and XML declarations",
	Long: `cesopgen builds and checks CESOP payment data declarations.

It generates synthetic cross-border payment ledgers, analyzes which payees
exceed the quarterly reporting threshold, renders CESOP 4.03 XML declarations,
and round-trips ledgers through fault injection, correction, and preflight
validation. Rendered files can be checked against the official validation
module.

Example usage:
  cesopgen generate --scale 5000          # Synthesize a ledger
  cesopgen analyze --input payments.csv   # Report payees over the threshold
  cesopgen render --input payments.csv    # Write XML declarations`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		log = logger.New()
		level := logger.ParseLevel(cfg.LogLevel)
		if verbose {
			level = zerolog.DebugLevel
		}
		log = log.Level(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
