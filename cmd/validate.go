package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cesoptools/cesopgen/internal/validation"
	"github.com/cesoptools/cesopgen/pkg/utils"
)

var validateFlags struct {
	input  string
	output string
	jar    string
	java   string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run rendered declarations through the official validation module",
	RunE: func(cmd *cobra.Command, args []string) error {
		jar := validateFlags.jar
		if !cmd.Flags().Changed("jar") && cfg.Validator.Jar != "" {
			jar = cfg.Validator.Jar
		}
		java := validateFlags.java
		if !cmd.Flags().Changed("java") {
			java = cfg.Validator.Java
		}

		runner := &validation.Runner{
			Java:    java,
			Jar:     jar,
			Timeout: time.Duration(cfg.Validator.TimeoutSeconds) * time.Second,
		}
		result, err := runner.Run(cmd.Context(), validateFlags.input)
		if err != nil {
			log.Error().Msg("Validation failed")
			return err
		}

		if validateFlags.output != "" {
			if err := utils.EnsureDir(filepath.Dir(validateFlags.output)); err != nil {
				return err
			}
			if err := os.WriteFile(validateFlags.output, []byte(result.Stdout), 0644); err != nil {
				return fmt.Errorf("failed to write validation output: %w", err)
			}
			log.Info().Str("path", validateFlags.output).Msg("Validation output written")
		} else {
			fmt.Print(result.Stdout)
		}

		if warnings := strings.TrimSpace(result.Stderr); warnings != "" {
			log.Warn().Msg("Validation warnings: " + warnings)
		}
		log.Info().Msg("Validation successful")
		log.Info().Int64("duration_ms", result.DurationMS).Msg("Validation time")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFlags.input, "input", "data/output", "Declaration file or directory to validate")
	validateCmd.Flags().StringVar(&validateFlags.output, "output", "", "Optional path for the validation module output")
	validateCmd.Flags().StringVar(&validateFlags.jar, "jar", "scripts/cesop-vm/cesop-vm-application.jar", "Path to the validation module jar")
	validateCmd.Flags().StringVar(&validateFlags.java, "java", "java", "Java binary to invoke")
	rootCmd.AddCommand(validateCmd)
}
