package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retailprep/internal/export"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/metrics"
)

var (
	cleanInput               string
	cleanSheets              []string
	cleanKeepDuplicates      bool
	cleanAllowMultiCustomers bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the raw workbook and write the normalized tables",
	Long: `Read the raw Online Retail II workbook, run the cleaning pipeline and
write the cleaned flat table plus customers, products, invoices and
invoice_items as CSV files. A per-step row count report is printed.

Existing files are kept unless --overwrite is given.

Example:
  pgedge-retailprep clean --input online_retail_II.xlsx --output-dir output`,
	RunE: runClean,
}

func init() {
	addInputFlags(cleanCmd)
}

// addInputFlags registers the raw input flags on every command that can
// clean the raw workbook.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cleanInput, "input", "",
		"raw input: .xlsx workbook, directory of sheet CSVs, or a CSV file")
	cmd.Flags().StringSliceVar(&cleanSheets, "sheets", nil,
		"sheet names to read, in order")
	cmd.Flags().BoolVar(&cleanKeepDuplicates, "keep-exact-duplicates", false,
		"do not drop rows identical in every field before aggregation")
	cmd.Flags().BoolVar(&cleanAllowMultiCustomers, "allow-multi-customer-invoices", false,
		"keep the first customer of invoices naming several instead of failing")
}

// applyInputFlags copies the input flags over the config.
func applyInputFlags() {
	if cleanInput != "" {
		cfg.Input.Path = cleanInput
	}
	if len(cleanSheets) > 0 {
		cfg.Input.Sheets = cleanSheets
	}
	if cleanKeepDuplicates {
		cfg.Clean.DropExactDuplicates = false
	}
	if cleanAllowMultiCustomers {
		cfg.Clean.AllowMultiCustomerInvoices = true
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	applyInputFlags()

	// Validate configuration
	if err := cfg.ValidateClean(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rec := metrics.New()
	res, err := runCleaning(ctx, rec)
	if err != nil {
		return err
	}

	s, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	outcomes, err := export.New(s, cfg.Output.Overwrite).WriteDataset(ctx, res.Dataset)
	if err != nil {
		return fmt.Errorf("failed to write cleaned tables: %w", err)
	}

	out := cmd.OutOrStdout()
	printSteps(out, res)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Output files:")
	printOutcomes(out, outcomes)

	logging.Info().
		Int("rows", len(res.Dataset.Flat)).
		Msg("Clean complete")

	return finishMetrics(rec)
}
