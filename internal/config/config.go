// Package config loads the application configuration from a YAML file and
// fills in defaults for anything left unset. Every value here can also be
// overridden per invocation through command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cesoptools/cesopgen/internal/analysis"
	"github.com/cesoptools/cesopgen/internal/report"
)

// Config holds the global application settings.
type Config struct {
	// LedgerPath is the default payment ledger location.
	LedgerPath string `yaml:"ledger_path"`

	// OutputDir is where rendered declarations are written.
	OutputDir string `yaml:"output_dir"`

	// FilenamePrefix is the leading component of declaration file names.
	FilenamePrefix string `yaml:"filename_prefix"`

	// Threshold is the default analyzer threshold. Rendering always uses the
	// regulatory threshold regardless of this value.
	Threshold int `yaml:"threshold"`

	// TransmittingCountry is a two-letter code, or "auto" to derive it from
	// the reporting PSP's BIC.
	TransmittingCountry string `yaml:"transmitting_country"`

	// LicensedCountries enables the jurisdiction splitter when non-empty.
	LicensedCountries []string `yaml:"licensed_countries"`

	// LogLevel controls logging verbosity: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	Validator ValidatorConfig `yaml:"validator"`
}

// ValidatorConfig locates the external CESOP validation module.
type ValidatorConfig struct {
	Java           string `yaml:"java"`
	Jar            string `yaml:"jar"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from path. A missing file is not an error;
// the defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LedgerPath == "" {
		c.LedgerPath = "data/synthetic/payments.csv"
	}
	if c.OutputDir == "" {
		c.OutputDir = "data/output"
	}
	if c.FilenamePrefix == "" {
		c.FilenamePrefix = "cesop"
	}
	if c.Threshold == 0 {
		c.Threshold = analysis.DefaultThreshold
	}
	if c.TransmittingCountry == "" {
		c.TransmittingCountry = report.TransmittingCountryAuto
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Validator.Java == "" {
		c.Validator.Java = "java"
	}
}

func (c *Config) validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold cannot be negative")
	}
	if c.Validator.TimeoutSeconds < 0 {
		return fmt.Errorf("validator.timeout_seconds cannot be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	tc := strings.TrimSpace(c.TransmittingCountry)
	if !strings.EqualFold(tc, report.TransmittingCountryAuto) && len(tc) != 2 {
		return fmt.Errorf("transmitting_country must be a two-letter code or %q", report.TransmittingCountryAuto)
	}
	for _, country := range c.LicensedCountries {
		if len(strings.TrimSpace(country)) != 2 {
			return fmt.Errorf("licensed_countries entries must be two-letter codes, got %q", country)
		}
	}
	return nil
}
