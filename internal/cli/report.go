package cli

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retailprep/internal/config"
	"github.com/pgEdge/pgedge-retailprep/internal/export"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/metrics"
	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
	"github.com/pgEdge/pgedge-retailprep/internal/sink"
)

var (
	reportEngine      string
	reportTopN        int
	reportHomeCountry string
	reportFromRaw     bool
)

// maxMismatches bounds the mismatches printed by verify.
const maxMismatches = 20

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute the report tables from the cleaned dataset",
	Long: `Compute monthly revenue, top products, invoices and customers, revenue
by country, customer types, recency and RFM segments, and write each table
as a CSV file under the report directory of the output, one sub-directory
per engine.

The cleaned tables written by 'clean' are read back unless --from-raw is
given, in which case the raw workbook is cleaned in-process.

Example:
  pgedge-retailprep report --engine sql
  pgedge-retailprep report --engine all --from-raw --input online_retail_II.xlsx`,
	RunE: runReport,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every report engine produces identical reports",
	Long: `Compute the reports with every registered engine and compare them
value by value. The command fails when any table differs.`,
	RunE: runVerify,
}

func init() {
	for _, cmd := range []*cobra.Command{reportCmd, verifyCmd} {
		cmd.Flags().IntVar(&reportTopN, "top-n", 0,
			"length of the top products, invoices and customers tables")
		cmd.Flags().StringVar(&reportHomeCountry, "home-country", "",
			"country excluded from the second revenue-by-country table")
		cmd.Flags().BoolVar(&reportFromRaw, "from-raw", false,
			"clean the raw input instead of reading the cleaned tables")
		addInputFlags(cmd)
	}
	reportCmd.Flags().StringVar(&reportEngine, "engine", "",
		"report engine: "+config.EngineAll+" or one of the registered engines")
}

func applyReportFlags() {
	applyInputFlags()
	if reportEngine != "" {
		cfg.Report.Engine = reportEngine
	}
	if reportTopN > 0 {
		cfg.Report.TopN = reportTopN
	}
	if reportHomeCountry != "" {
		cfg.Report.HomeCountry = reportHomeCountry
	}
}

func reportOptions() report.Options {
	return report.Options{
		TopN:        cfg.Report.TopN,
		HomeCountry: cfg.Report.HomeCountry,
	}
}

// buildReport computes the bundle of one engine.
func buildReport(ctx context.Context, name string, ds retail.Dataset) (*report.Bundle, error) {
	engine, err := report.Get(name)
	if err != nil {
		return nil, err
	}

	src, err := engine.Open(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s engine: %w", name, err)
	}
	defer src.Close()

	bundle, err := report.Build(ctx, name, src, reportOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to build %s report: %w", name, err)
	}
	return bundle, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	applyReportFlags()

	// Validate configuration
	if err := cfg.ValidateReport(report.List()); err != nil {
		return err
	}
	if reportFromRaw {
		if err := cfg.ValidateClean(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rec := metrics.New()
	ds, _, err := loadDataset(ctx, s, reportFromRaw, rec)
	if err != nil {
		return err
	}

	engines := []string{cfg.Report.Engine}
	if cfg.Report.Engine == config.EngineAll {
		engines = report.List()
	}

	out := cmd.OutOrStdout()
	for _, name := range engines {
		bundle, err := buildReport(ctx, name, ds)
		if err != nil {
			return err
		}

		dir := path.Join(cfg.Report.Dir, name)
		outcomes, err := export.New(sink.Sub(s, dir), cfg.Output.Overwrite).WriteFrames(ctx, bundle.Frames())
		if err != nil {
			return fmt.Errorf("failed to write %s report: %w", name, err)
		}

		fmt.Fprintf(out, "Engine %s (reference date %s):\n",
			name, bundle.ReferenceDate.Format(retail.TimestampLayout))
		printOutcomes(out, outcomes)
		for _, seg := range bundle.Segments {
			rec.ObserveTable("segment_"+seg.Segment, int(seg.Customers))
		}
	}

	logging.Info().
		Strs("engines", engines).
		Msg("Report complete")

	return finishMetrics(rec)
}

func runVerify(cmd *cobra.Command, args []string) error {
	applyReportFlags()
	cfg.Report.Engine = config.EngineAll

	// Validate configuration
	if err := cfg.ValidateReport(report.List()); err != nil {
		return err
	}
	if reportFromRaw {
		if err := cfg.ValidateClean(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ds, _, err := loadDataset(ctx, s, reportFromRaw, metrics.New())
	if err != nil {
		return err
	}

	engines := report.List()
	if len(engines) < 2 {
		return fmt.Errorf("verify needs at least two engines, have %v", engines)
	}

	base, err := buildReport(ctx, engines[0], ds)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, name := range engines[1:] {
		other, err := buildReport(ctx, name, ds)
		if err != nil {
			return err
		}

		mismatches := report.Compare(base, other)
		if len(mismatches) == 0 {
			fmt.Fprintf(out, "%s and %s agree on all %d tables\n", engines[0], name, len(base.Frames()))
			continue
		}

		failed = true
		fmt.Fprintf(out, "%s and %s differ in %d values:\n", engines[0], name, len(mismatches))
		for i, m := range mismatches {
			if i == maxMismatches {
				fmt.Fprintf(out, "  ... %d more\n", len(mismatches)-maxMismatches)
				break
			}
			fmt.Fprintf(out, "  %s\n", m)
		}
	}

	if failed {
		return fmt.Errorf("report engines disagree")
	}
	return nil
}
