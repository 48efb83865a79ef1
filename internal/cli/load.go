package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retailprep/internal/db"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/metrics"
	"github.com/pgEdge/pgedge-retailprep/internal/store"
)

var (
	loadEnvFile      string
	loadDropExisting bool
	loadBatchSize    int
	loadFromRaw      bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the normalized tables into PostgreSQL",
	Long: `Create the retail schema in PostgreSQL and bulk load customers,
products, invoices and invoice_items in a single transaction. Row counts
and integrity checks are printed afterwards; the command fails when an
integrity check finds violations.

The connection is taken from --connection, or built from the PGHOST,
PGPORT, PGUSER, PGPASSWORD and PGDATABASE entries of --env-file.

Example:
  pgedge-retailprep load --connection "postgres://..." --drop-existing
  pgedge-retailprep load --env-file .env --from-raw`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadEnvFile, "env-file", "",
		"dotenv file with PostgreSQL credentials")
	loadCmd.Flags().BoolVar(&loadDropExisting, "drop-existing", false,
		"drop the retail tables before loading")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 0,
		"rows per COPY batch")
	loadCmd.Flags().BoolVar(&loadFromRaw, "from-raw", false,
		"clean the raw input instead of reading the cleaned tables")
	addInputFlags(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	applyInputFlags()
	if loadEnvFile != "" {
		cfg.Load.EnvFile = loadEnvFile
	}
	if loadDropExisting {
		cfg.Load.DropExisting = true
	}
	if loadBatchSize > 0 {
		cfg.Load.BatchSize = loadBatchSize
	}

	// Validate configuration
	if err := cfg.ValidateLoad(); err != nil {
		return err
	}
	if loadFromRaw {
		if err := cfg.ValidateClean(); err != nil {
			return err
		}
	}

	connString := cfg.Connection
	if connString == "" {
		var err error
		connString, err = db.ConnStringFromEnvFile(cfg.Load.EnvFile)
		if err != nil {
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
	ds, source, err := loadDataset(ctx, s, loadFromRaw, rec)
	if err != nil {
		return err
	}

	// Connect to database
	pool, err := db.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	logging.Info().
		Bool("drop_existing", cfg.Load.DropExisting).
		Int("batch_size", cfg.Load.BatchSize).
		Msg("Loading retail tables")

	result, err := store.Load(ctx, pool, ds, store.Options{
		DropExisting: cfg.Load.DropExisting,
		BatchSize:    cfg.Load.BatchSize,
		Info:         db.LoadInfo{RunID: runID, Source: source},
	})
	if err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-20s %12s\n", "TABLE", "ROWS")
	for _, c := range result.Counts {
		fmt.Fprintf(out, "%-20s %12d\n", c.Table, c.Rows)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%-24s %10s\n", "CHECK", "COUNT")
	for _, c := range result.Checks {
		status := ""
		switch {
		case c.Failed():
			status = "FAILED"
		case c.Informational:
			status = "(informational)"
		}
		fmt.Fprintf(out, "%-24s %10d  %s\n", c.Name, c.Count, status)
	}
	fmt.Fprintln(out)
	keys := make([]string, 0, len(result.Metadata))
	for k := range result.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%-10s %s\n", k+":", result.Metadata[k])
	}
	fmt.Fprintf(out, "\nLoaded in %s\n", result.Duration.Round(time.Millisecond))

	if !result.OK() {
		return fmt.Errorf("integrity checks failed")
	}
	return finishMetrics(rec)
}
