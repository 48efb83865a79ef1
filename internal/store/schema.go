//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package store loads the normalized retail tables into PostgreSQL and
// verifies the result.
package store

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-retailprep/internal/db"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
)

// Tables in foreign key order.
var Tables = []string{"customers", "products", "invoices", "invoice_items"}

// schemaSQL contains the DDL for the retail schema.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS customers (
    customer_id BIGINT PRIMARY KEY,
    country     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    stock_code  TEXT PRIMARY KEY,
    description TEXT NOT NULL,
    unit_price  NUMERIC(10,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS invoices (
    invoice_no   TEXT PRIMARY KEY,
    invoice_date TIMESTAMP NOT NULL,
    customer_id  BIGINT NOT NULL REFERENCES customers (customer_id)
);

CREATE TABLE IF NOT EXISTS invoice_items (
    invoice_no   TEXT NOT NULL REFERENCES invoices (invoice_no),
    stock_code   TEXT NOT NULL REFERENCES products (stock_code),
    quantity     INTEGER NOT NULL,
    unit_price   NUMERIC(10,2) NOT NULL,
    line_revenue NUMERIC(12,2) NOT NULL,
    PRIMARY KEY (invoice_no, stock_code)
);

CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices (customer_id);
CREATE INDEX IF NOT EXISTS idx_invoice_items_stock ON invoice_items (stock_code);
`

// CreateSchema creates the retail tables if they do not exist.
func CreateSchema(ctx context.Context, conn db.DB) error {
	logging.Info().Msg("Creating retail schema")

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info().Msg("Schema created successfully")
	return nil
}

// DropSchema drops the retail tables, dependents first.
func DropSchema(ctx context.Context, conn db.DB) error {
	logging.Info().Msg("Dropping retail schema")

	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", Tables[i])); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", Tables[i], err)
		}
	}
	return nil
}
