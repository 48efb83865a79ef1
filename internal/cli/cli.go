//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-retailprep.
package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retailprep/internal/config"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/pkg/version"
)

var (
	// Global flags
	cfgFile     string
	connection  string
	logLevel    string
	outputDir   string
	overwrite   bool
	metricsFile string

	// Global config
	cfg *config.Config

	// runID tags the logs, metrics and load metadata of one invocation.
	runID string

	rootCmd = &cobra.Command{
		Use:   "pgedge-retailprep",
		Short: "Clean, normalize, report on and load the Online Retail II dataset",
		Long: `pgedge-retailprep turns the raw Online Retail II workbook into four
normalized tables (customers, products, invoices, invoice_items), computes
descriptive business reports and RFM customer segments, and loads the
normalized tables into PostgreSQL with post-load integrity checks.

Reports can be computed by more than one engine; the verify command checks
that every engine produces identical results.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-retailprep.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "",
		"output directory for the fs driver")
	rootCmd.PersistentFlags().BoolVar(&overwrite, "overwrite", false,
		"overwrite existing output files")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write Prometheus metrics to this textfile")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(enginesCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(generateCmd)
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Output.Overwrite = overwrite
	}
	if metricsFile != "" {
		cfg.Metrics.File = metricsFile
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	runID = uuid.NewString()
	logging.WithRunID(runID)

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List available report engines",
	Long: `List all registered report engines. Every engine computes the same
reports from the cleaned tables; use 'verify' to check that they agree.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available report engines:")
		cmd.Println()
		for _, e := range report.All() {
			cmd.Printf("  %-8s - %s\n", e.Name(), e.Description())
		}
		cmd.Println()
		cmd.Printf("Use '--engine %s' to run every engine.\n", config.EngineAll)
	},
}
