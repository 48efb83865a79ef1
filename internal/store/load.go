//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-retailprep/internal/db"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// ErrDuplicateItemKey is returned when the dataset holds more than one
// invoice item for the same invoice and stock code, which the
// invoice_items primary key cannot store.
var ErrDuplicateItemKey = errors.New("duplicate invoice item key")

// DefaultBatchSize is the number of rows sent per COPY.
const DefaultBatchSize = 5000

// Options configures Load.
type Options struct {
	// DropExisting drops the retail tables before creating them.
	DropExisting bool

	// BatchSize is the number of rows per COPY; progress is logged every
	// ten batches.
	BatchSize int

	// Info is recorded in the metadata table.
	Info db.LoadInfo
}

// Report summarizes a load.
type Report struct {
	Copied   []TableCount
	Counts   []TableCount
	Checks   []Check
	Duration time.Duration

	// Metadata is the content of the metadata table after the load.
	Metadata map[string]string
}

// OK reports whether every integrity check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Failed() {
			return false
		}
	}
	return true
}

// DuplicateItemKeys returns every item key that occurs more than once, in
// first-seen order.
func DuplicateItemKeys(items []retail.InvoiceItem) []retail.ItemKey {
	seen := make(map[retail.ItemKey]int, len(items))
	var dups []retail.ItemKey
	for _, it := range items {
		k := it.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// copySource describes one table to copy.
type copySource struct {
	table   string
	columns []string
	rows    int
	row     func(i int) []any
}

func copySources(ds retail.Dataset) []copySource {
	return []copySource{
		{"customers", []string{"customer_id", "country"}, len(ds.Customers), func(i int) []any {
			c := ds.Customers[i]
			return []any{c.CustomerID, c.Country}
		}},
		{"products", []string{"stock_code", "description", "unit_price"}, len(ds.Products), func(i int) []any {
			p := ds.Products[i]
			return []any{p.StockCode, p.Description, p.UnitPrice}
		}},
		{"invoices", []string{"invoice_no", "invoice_date", "customer_id"}, len(ds.Invoices), func(i int) []any {
			inv := ds.Invoices[i]
			return []any{inv.InvoiceNo, inv.InvoiceDate, inv.CustomerID}
		}},
		{"invoice_items", []string{"invoice_no", "stock_code", "quantity", "unit_price", "line_revenue"}, len(ds.Items), func(i int) []any {
			it := ds.Items[i]
			return []any{it.InvoiceNo, it.StockCode, it.Quantity, it.UnitPrice, it.LineRevenue}
		}},
	}
}

// Load writes the normalized tables of ds in a single transaction, then
// counts rows, runs the integrity checks and records load metadata. Any
// error aborts the load.
func Load(ctx context.Context, pool *pgxpool.Pool, ds retail.Dataset, opts Options) (*Report, error) {
	if dups := DuplicateItemKeys(ds.Items); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %d keys, first invoice %s stock %s",
			ErrDuplicateItemKey, len(dups), dups[0].InvoiceNo, dups[0].StockCode)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	start := time.Now()
	report := &Report{}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if opts.DropExisting {
		if err := DropSchema(ctx, tx); err != nil {
			return nil, err
		}
		if err := db.DropMetadata(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to drop metadata: %w", err)
		}
	}
	if err := CreateSchema(ctx, tx); err != nil {
		return nil, err
	}

	for _, src := range copySources(ds) {
		n, err := copyTable(ctx, tx, src, batchSize)
		if err != nil {
			return nil, err
		}
		report.Copied = append(report.Copied, TableCount{Table: src.table, Rows: n})
	}

	if err := db.SaveMetadata(ctx, tx, opts.Info); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}

	if report.Counts, err = CountRows(ctx, pool); err != nil {
		return nil, err
	}
	if report.Checks, err = RunChecks(ctx, pool); err != nil {
		return nil, err
	}
	if report.Metadata, err = db.GetAllMetadata(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	report.Duration = time.Since(start)

	logging.Info().
		Dur("duration", report.Duration).
		Bool("checks_ok", report.OK()).
		Msg("Load complete")

	return report, nil
}

func copyTable(ctx context.Context, tx pgx.Tx, src copySource, batchSize int) (int64, error) {
	progress := newProgressReporter(src.table, int64(src.rows), int64(batchSize)*10)

	var total int64
	for offset := 0; offset < src.rows; offset += batchSize {
		end := min(offset+batchSize, src.rows)
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{src.table},
			src.columns,
			pgx.CopyFromSlice(end-offset, func(i int) ([]any, error) {
				return src.row(offset + i), nil
			}),
		)
		if err != nil {
			return total, fmt.Errorf("failed to copy into %s: %w", src.table, err)
		}
		total += n
		progress.update(n)
	}
	progress.done()
	return total, nil
}
