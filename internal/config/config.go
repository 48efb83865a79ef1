//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-retailprep.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"
)

// Engine selections accepted by report.engine. "all" runs every
// registered engine.
const EngineAll = "all"

// Config holds all configuration for pgedge-retailprep.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Clean    CleanConfig    `mapstructure:"clean"`
	Report   ReportConfig   `mapstructure:"report"`
	Load     LoadConfig     `mapstructure:"load"`
	Generate GenerateConfig `mapstructure:"generate"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// InputConfig locates the raw workbook.
type InputConfig struct {
	// Path is an .xlsx workbook, a directory of per-sheet CSV files, or a
	// single CSV file.
	Path string `mapstructure:"path"`

	// Sheets names the sheets to read, in order.
	Sheets []string `mapstructure:"sheets"`
}

// OutputConfig selects where CSV files are written.
type OutputConfig struct {
	// Driver is one of fs, s3, gcs or memory.
	Driver string `mapstructure:"driver"`

	// Dir is the output directory for the fs driver.
	Dir string `mapstructure:"dir"`

	// Overwrite replaces existing files. When false an existing file is
	// left untouched and reported as skipped.
	Overwrite bool `mapstructure:"overwrite"`

	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// CleanConfig tunes the cleaning pipeline.
type CleanConfig struct {
	DropExactDuplicates bool `mapstructure:"drop_exact_duplicates"`

	// ExcludedStockCodes replaces the built-in list of non-product codes
	// when set.
	ExcludedStockCodes []string `mapstructure:"excluded_stock_codes"`

	// AllowMultiCustomerInvoices keeps the first customer of an invoice
	// that names several, instead of failing.
	AllowMultiCustomerInvoices bool `mapstructure:"allow_multi_customer_invoices"`

	CancellationPrefix string `mapstructure:"cancellation_prefix"`
}

// ReportConfig holds configuration for the report and verify commands.
type ReportConfig struct {
	// Engine is a registered engine name or "all".
	Engine string `mapstructure:"engine"`

	// TopN is the length of the top products, invoices and customers
	// tables.
	TopN int `mapstructure:"top_n"`

	// HomeCountry is excluded from the second revenue-by-country table.
	HomeCountry string `mapstructure:"home_country"`

	// Dir is the sub-directory of the output sink for report files.
	Dir string `mapstructure:"dir"`
}

// LoadConfig holds configuration for the load command.
type LoadConfig struct {
	// EnvFile is a dotenv file with PGHOST, PGUSER and friends, used
	// when no connection string is given.
	EnvFile string `mapstructure:"env_file"`

	// DropExisting drops the retail tables before loading.
	DropExisting bool `mapstructure:"drop_existing"`

	BatchSize int `mapstructure:"batch_size"`
}

// GenerateConfig holds configuration for the generate command.
type GenerateConfig struct {
	// Output is the path of the workbook to write.
	Output string `mapstructure:"output"`

	// Seed makes the workbook reproducible; zero picks a random seed.
	Seed uint64 `mapstructure:"seed"`

	Invoices  int `mapstructure:"invoices"`
	Customers int `mapstructure:"customers"`
	Products  int `mapstructure:"products"`
}

// MetricsConfig controls Prometheus metrics output.
type MetricsConfig struct {
	// File is a node_exporter textfile path; empty disables metrics.
	File string `mapstructure:"file"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Input: InputConfig{
			Path:   "online_retail_II.xlsx",
			Sheets: []string{"Year 2009-2010", "Year 2010-2011"},
		},
		Output: OutputConfig{
			Driver: "fs",
			Dir:    "output",
		},
		Clean: CleanConfig{
			DropExactDuplicates: true,
			CancellationPrefix:  "C",
		},
		Report: ReportConfig{
			Engine:      "direct",
			TopN:        10,
			HomeCountry: "united kingdom",
			Dir:         "reports",
		},
		Load: LoadConfig{
			BatchSize: 5000,
		},
		Generate: GenerateConfig{
			Output:    "synthetic_online_retail_II.xlsx",
			Invoices:  2000,
			Customers: 300,
			Products:  500,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-retailprep.yaml
// 3. ~/.config/pgedge-retailprep/pgedge-retailprep.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("pgedge-retailprep")
	v.SetConfigType("yaml")

	// Add config paths
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-retailprep"))
	}

	// Use specific config file if provided
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal config file values
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ValidateOutput checks the output sink settings.
func (c *Config) ValidateOutput() error {
	switch c.Output.Driver {
	case "fs":
		if c.Output.Dir == "" {
			return fmt.Errorf("output.dir is required for the fs driver")
		}
	case "s3", "gcs":
		if c.Output.Bucket == "" {
			return fmt.Errorf("output.bucket is required for the %s driver", c.Output.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("output.driver must be one of fs, s3, gcs or memory")
	}
	return nil
}

// ValidateClean checks configuration required for the clean command.
func (c *Config) ValidateClean() error {
	if c.Input.Path == "" {
		return fmt.Errorf("input path is required")
	}
	if len(c.Input.Sheets) == 0 {
		return fmt.Errorf("at least one input sheet is required")
	}
	if c.Clean.CancellationPrefix == "" {
		return fmt.Errorf("cancellation_prefix must not be empty")
	}
	return c.ValidateOutput()
}

// ValidateReport checks configuration required for the report command.
// engines lists the registered engine names.
func (c *Config) ValidateReport(engines []string) error {
	if c.Report.Engine != EngineAll && !slices.Contains(engines, c.Report.Engine) {
		return fmt.Errorf("report.engine must be %q or one of %v", EngineAll, engines)
	}
	if c.Report.TopN < 1 {
		return fmt.Errorf("report.top_n must be at least 1")
	}
	return c.ValidateOutput()
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if c.Connection == "" && c.Load.EnvFile == "" {
		return fmt.Errorf("connection string or load.env_file is required")
	}
	if c.Load.BatchSize < 1 {
		return fmt.Errorf("load.batch_size must be at least 1")
	}
	return c.ValidateOutput()
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.Output == "" {
		return fmt.Errorf("generate output path is required")
	}
	if c.Generate.Invoices < 1 || c.Generate.Customers < 1 || c.Generate.Products < 1 {
		return fmt.Errorf("generate invoices, customers and products must be at least 1")
	}
	return nil
}
