//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
	"github.com/pgEdge/pgedge-retailprep/internal/export"
	"github.com/pgEdge/pgedge-retailprep/internal/ingest"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/metrics"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
	"github.com/pgEdge/pgedge-retailprep/internal/sink"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func sinkConfig() sink.Config {
	return sink.Config{
		Driver:          cfg.Output.Driver,
		Dir:             cfg.Output.Dir,
		Bucket:          cfg.Output.Bucket,
		Prefix:          cfg.Output.Prefix,
		Region:          cfg.Output.Region,
		Endpoint:        cfg.Output.Endpoint,
		PathStyle:       cfg.Output.PathStyle,
		AccessKeyID:     cfg.Output.AccessKeyID,
		SecretAccessKey: cfg.Output.SecretAccessKey,
	}
}

func openSink(ctx context.Context) (sink.Sink, error) {
	s, err := sink.New(ctx, sinkConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	return s, nil
}

func cleaningOptions() cleaning.Options {
	opts := cleaning.DefaultOptions()
	opts.CancellationPrefix = cfg.Clean.CancellationPrefix
	opts.DropExactDuplicates = cfg.Clean.DropExactDuplicates
	opts.AllowMultiCustomerInvoices = cfg.Clean.AllowMultiCustomerInvoices
	if len(cfg.Clean.ExcludedStockCodes) > 0 {
		opts.ExcludedStockCodes = cfg.Clean.ExcludedStockCodes
	}
	return opts
}

// runCleaning ingests the configured input and runs the cleaning pipeline.
// Key violations other than price variants are fatal.
func runCleaning(ctx context.Context, rec *metrics.Recorder) (*cleaning.Result, error) {
	logging.Info().
		Str("input", cfg.Input.Path).
		Strs("sheets", cfg.Input.Sheets).
		Msg("Reading raw dataset")

	raw, err := ingest.Read(ctx, cfg.Input.Path, ingest.Options{Sheets: cfg.Input.Sheets})
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	res, err := cleaning.New(cleaningOptions()).WithObserver(rec).Run(ctx, raw.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to clean dataset: %w", err)
	}

	if n := len(res.Keys.PriceVariantItems); n > 0 {
		first := res.Keys.PriceVariantItems[0]
		logging.Warn().
			Int("keys", n).
			Str("invoice_no", first.InvoiceNo).
			Str("stock_code", first.StockCode).
			Msg("Invoice items with more than one unit price")
	}
	if !res.Keys.OK() {
		return nil, fmt.Errorf("cleaned tables violate key constraints: %+v", res.Keys)
	}

	observeDataset(rec, res.Dataset)
	return res, nil
}

// loadDataset returns the cleaned dataset, either by cleaning the raw
// input or by reading back the tables a previous clean wrote to s.
func loadDataset(ctx context.Context, s sink.Sink, fromRaw bool, rec *metrics.Recorder) (retail.Dataset, string, error) {
	if fromRaw {
		res, err := runCleaning(ctx, rec)
		if err != nil {
			return retail.Dataset{}, "", err
		}
		return res.Dataset, cfg.Input.Path, nil
	}

	ds, err := export.ReadDataset(ctx, s)
	if err != nil {
		return ds, "", fmt.Errorf("failed to read cleaned tables (run 'clean' first or pass --from-raw): %w", err)
	}
	observeDataset(rec, ds)
	return ds, s.Location(export.CleanedFile), nil
}

func observeDataset(rec *metrics.Recorder, ds retail.Dataset) {
	rec.ObserveTable("cleaned", len(ds.Flat))
	rec.ObserveTable("customers", len(ds.Customers))
	rec.ObserveTable("products", len(ds.Products))
	rec.ObserveTable("invoices", len(ds.Invoices))
	rec.ObserveTable("invoice_items", len(ds.Items))
}

// finishMetrics marks the run successful and writes the textfile when
// one is configured.
func finishMetrics(rec *metrics.Recorder) error {
	rec.MarkSuccess(time.Now())
	if cfg.Metrics.File == "" {
		return nil
	}
	if err := rec.WriteTextfile(cfg.Metrics.File); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	logging.Info().Str("file", cfg.Metrics.File).Msg("Wrote metrics")
	return nil
}

func printSteps(w io.Writer, res *cleaning.Result) {
	fmt.Fprintf(w, "%-28s %10s %10s %10s %10s\n", "STEP", "BEFORE", "AFTER", "REMOVED", "CHANGED")
	for _, s := range res.Steps {
		fmt.Fprintf(w, "%-28s %10d %10d %10d %10d\n", s.Name, s.Before, s.After, s.Removed, s.Changed)
	}
	fmt.Fprintf(w, "\nInitial rows: %d, removed by filters: %d, remaining: %d\n",
		res.Initial, res.FilterRemoved(), res.FilteredRows())

	if len(res.Conflicts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-28s %10s %12s\n", "CONFLICT", "KEYS", "ROWS FIXED")
		for _, c := range res.Conflicts {
			fmt.Fprintf(w, "%-28s %10d %12d\n", c.Kind, c.KeysInConflict, c.RowsChanged)
		}
	}
}

func printOutcomes(w io.Writer, outcomes []export.Outcome) {
	for _, o := range outcomes {
		if o.Skipped {
			fmt.Fprintf(w, "  skipped %-40s (exists, overwrite disabled)\n", o.Name)
			continue
		}
		fmt.Fprintf(w, "  wrote   %-40s %8d rows  %s\n", o.Name, o.Rows, o.Location)
	}
}
