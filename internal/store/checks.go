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
	"fmt"

	"github.com/pgEdge/pgedge-retailprep/internal/db"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
)

// TableCount is the row count of a loaded table.
type TableCount struct {
	Table string
	Rows  int64
}

// Check is the outcome of one integrity check.
type Check struct {
	Name  string
	Count int64

	// Informational checks describe the data; a non-zero count is not a
	// failure.
	Informational bool
}

// Failed reports whether the check found violations.
func (c Check) Failed() bool {
	return !c.Informational && c.Count > 0
}

type checkDefinition struct {
	name          string
	query         string
	informational bool
}

var checkDefinitions = []checkDefinition{
	{
		name: "orphan_invoice_items",
		query: `SELECT COUNT(*) FROM invoice_items ii
            WHERE NOT EXISTS (SELECT 1 FROM invoices i WHERE i.invoice_no = ii.invoice_no)
               OR NOT EXISTS (SELECT 1 FROM products p WHERE p.stock_code = ii.stock_code)`,
	},
	{
		name: "orphan_invoices",
		query: `SELECT COUNT(*) FROM invoices i
            WHERE NOT EXISTS (SELECT 1 FROM customers c WHERE c.customer_id = i.customer_id)`,
	},
	{
		name: "empty_invoices",
		query: `SELECT COUNT(*) FROM invoices i
            WHERE NOT EXISTS (SELECT 1 FROM invoice_items ii WHERE ii.invoice_no = i.invoice_no)`,
	},
	{
		name: "inactive_customers",
		query: `SELECT COUNT(*) FROM customers c
            WHERE NOT EXISTS (SELECT 1 FROM invoices i WHERE i.customer_id = c.customer_id)`,
		informational: true,
	},
	{
		name: "unsold_products",
		query: `SELECT COUNT(*) FROM products p
            WHERE NOT EXISTS (SELECT 1 FROM invoice_items ii WHERE ii.stock_code = p.stock_code)`,
		informational: true,
	},
}

// CountRows returns the row count of every retail table.
func CountRows(ctx context.Context, conn db.DB) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := conn.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		logging.Info().
			Str("table", table).
			Int64("rows", n).
			Msg("Table row count")
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

// RunChecks runs the referential integrity and sanity checks.
func RunChecks(ctx context.Context, conn db.DB) ([]Check, error) {
	checks := make([]Check, 0, len(checkDefinitions))
	for _, def := range checkDefinitions {
		var n int64
		if err := conn.QueryRow(ctx, def.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to run check %s: %w", def.name, err)
		}
		c := Check{Name: def.name, Count: n, Informational: def.informational}

		ev := logging.Info()
		if c.Failed() {
			ev = logging.Warn()
		}
		ev.Str("check", c.Name).
			Int64("count", c.Count).
			Bool("informational", c.Informational).
			Msg("Integrity check")

		checks = append(checks, c)
	}
	return checks, nil
}
