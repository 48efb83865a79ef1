//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sqlreport implements the relational report engine. The four
// normalized tables are loaded into an in-memory SQLite database and every
// base aggregation is answered with SQL.
package sqlreport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// Engine is the "sql" report engine.
type Engine struct{}

func init() {
	report.Register(Engine{})
}

// Name returns the engine name.
func (Engine) Name() string {
	return "sql"
}

// Description returns a human-readable description.
func (Engine) Description() string {
	return "SQL aggregation over the normalized tables in an in-memory SQLite database"
}

// Open loads ds into a fresh in-memory database.
func (Engine) Open(ctx context.Context, ds retail.Dataset) (report.Source, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := Load(ctx, db, ds); err != nil {
		_ = db.Close()
		return nil, err
	}
	src := NewSource(db)
	src.owned = true
	return src, nil
}

// The items table has no primary key: rows of one invoice and product that
// disagree on unit price are kept apart by line aggregation.
var schema = []string{
	`CREATE TABLE customers (
		customer_id INTEGER PRIMARY KEY,
		country TEXT NOT NULL
	)`,
	`CREATE TABLE products (
		stock_code TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		unit_price REAL NOT NULL
	)`,
	`CREATE TABLE invoices (
		invoice_no TEXT PRIMARY KEY,
		invoice_date TEXT NOT NULL,
		customer_id INTEGER NOT NULL REFERENCES customers (customer_id)
	)`,
	`CREATE TABLE invoice_items (
		invoice_no TEXT NOT NULL REFERENCES invoices (invoice_no),
		stock_code TEXT NOT NULL REFERENCES products (stock_code),
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		line_revenue REAL NOT NULL
	)`,
	`CREATE INDEX invoice_items_invoice_no ON invoice_items (invoice_no)`,
	`CREATE INDEX invoice_items_stock_code ON invoice_items (stock_code)`,
}

// Load creates the schema in db and inserts the normalized tables of ds in
// a single transaction.
func Load(ctx context.Context, db *sql.DB, ds retail.Dataset) (retErr error) {
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := insertAll(ctx, tx, "customers",
		`INSERT INTO customers (customer_id, country) VALUES (?, ?)`,
		len(ds.Customers), func(i int) []any {
			c := ds.Customers[i]
			return []any{c.CustomerID, c.Country}
		}); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, "products",
		`INSERT INTO products (stock_code, description, unit_price) VALUES (?, ?, ?)`,
		len(ds.Products), func(i int) []any {
			p := ds.Products[i]
			return []any{p.StockCode, p.Description, p.UnitPrice}
		}); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, "invoices",
		`INSERT INTO invoices (invoice_no, invoice_date, customer_id) VALUES (?, ?, ?)`,
		len(ds.Invoices), func(i int) []any {
			inv := ds.Invoices[i]
			return []any{inv.InvoiceNo, inv.InvoiceDate.Format(retail.TimestampLayout), inv.CustomerID}
		}); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, "invoice_items",
		`INSERT INTO invoice_items (invoice_no, stock_code, quantity, unit_price, line_revenue) VALUES (?, ?, ?, ?, ?)`,
		len(ds.Items), func(i int) []any {
			it := ds.Items[i]
			return []any{it.InvoiceNo, it.StockCode, it.Quantity, it.UnitPrice, it.LineRevenue}
		}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.Debug().
		Int("customers", len(ds.Customers)).
		Int("products", len(ds.Products)).
		Int("invoices", len(ds.Invoices)).
		Int("invoice_items", len(ds.Items)).
		Dur("duration", time.Since(start)).
		Msg("Loaded tables into SQLite")
	return nil
}

func insertAll(ctx context.Context, tx *sql.Tx, table, query string, n int, args func(int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
	}
	return nil
}
