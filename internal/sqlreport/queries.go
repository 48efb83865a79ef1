//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sqlreport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

const (
	monthlyRevenueQuery = `
		SELECT
			strftime('%Y-%m', i.invoice_date) AS invoice_month,
			SUM(ii.line_revenue) AS monthly_revenue,
			COUNT(DISTINCT i.invoice_no) AS monthly_invoices
		FROM invoices AS i
		JOIN invoice_items AS ii USING (invoice_no)
		GROUP BY invoice_month`

	productRevenueQuery = `
		SELECT
			p.stock_code,
			p.description,
			SUM(ii.line_revenue) AS total_revenue,
			SUM(ii.quantity) AS total_quantity,
			AVG(ii.unit_price) AS avg_unit_price
		FROM invoice_items AS ii
		JOIN products AS p ON ii.stock_code = p.stock_code
		GROUP BY p.stock_code, p.description`

	invoiceTotalsQuery = `
		SELECT
			ii.invoice_no,
			SUM(ii.line_revenue) AS total_invoice_revenue,
			COUNT(ii.stock_code) AS invoice_items,
			i.customer_id,
			i.invoice_date
		FROM invoice_items AS ii
		JOIN invoices AS i ON ii.invoice_no = i.invoice_no
		GROUP BY ii.invoice_no, i.customer_id, i.invoice_date`

	countryRevenueQuery = `
		SELECT
			c.country,
			SUM(ii.line_revenue) AS total_revenue,
			COUNT(DISTINCT i.invoice_no) AS num_invoices
		FROM invoice_items AS ii
		JOIN invoices AS i ON ii.invoice_no = i.invoice_no
		JOIN customers AS c ON i.customer_id = c.customer_id
		GROUP BY c.country`

	countryBehaviorQuery = `
		SELECT
			c.country,
			COUNT(DISTINCT c.customer_id) AS num_customers,
			COUNT(DISTINCT i.invoice_no) AS num_invoices,
			SUM(ii.line_revenue) AS total_revenue
		FROM invoice_items AS ii
		JOIN invoices AS i USING (invoice_no)
		JOIN customers AS c USING (customer_id)
		GROUP BY c.country`

	customerActivityQuery = `
		SELECT
			c.customer_id,
			COUNT(DISTINCT i.invoice_no) AS num_orders,
			SUM(ii.line_revenue) AS total_spent,
			MAX(i.invoice_date) AS last_purchase
		FROM customers AS c
		JOIN invoices AS i ON c.customer_id = i.customer_id
		JOIN invoice_items AS ii ON i.invoice_no = ii.invoice_no
		GROUP BY c.customer_id`
)

// Source answers the report aggregations from a database holding the four
// normalized tables.
type Source struct {
	db    *sql.DB
	owned bool
}

// NewSource returns a source over an already loaded database. Close does
// not close db.
func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

// Close closes the database if the source opened it.
func (s *Source) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// timestamp scans invoice dates stored as text.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *timestamp) parse(s string) error {
	parsed, err := time.ParseInLocation(retail.TimestampLayout, s, time.UTC)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// query runs q and scans every row with scan.
func query(ctx context.Context, db *sql.DB, name, q string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	return nil
}

// MonthlyRevenue returns revenue and invoice counts per month.
func (s *Source) MonthlyRevenue(ctx context.Context) ([]report.MonthRevenue, error) {
	var out []report.MonthRevenue
	err := query(ctx, s.db, "monthly revenue", monthlyRevenueQuery, func(rows *sql.Rows) error {
		var m report.MonthRevenue
		if err := rows.Scan(&m.Month, &m.Revenue, &m.Invoices); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// ProductRevenue returns per-product revenue, quantity and mean price.
func (s *Source) ProductRevenue(ctx context.Context) ([]report.ProductRevenue, error) {
	var out []report.ProductRevenue
	err := query(ctx, s.db, "product revenue", productRevenueQuery, func(rows *sql.Rows) error {
		var p report.ProductRevenue
		if err := rows.Scan(&p.StockCode, &p.Description, &p.Revenue, &p.Quantity, &p.AvgUnitPrice); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// InvoiceTotals returns the revenue and line count of every invoice.
func (s *Source) InvoiceTotals(ctx context.Context) ([]report.InvoiceTotal, error) {
	var out []report.InvoiceTotal
	err := query(ctx, s.db, "invoice totals", invoiceTotalsQuery, func(rows *sql.Rows) error {
		var inv report.InvoiceTotal
		var date timestamp
		if err := rows.Scan(&inv.InvoiceNo, &inv.Revenue, &inv.Items, &inv.CustomerID, &date); err != nil {
			return err
		}
		inv.InvoiceDate = date.Time
		out = append(out, inv)
		return nil
	})
	return out, err
}

// CountryRevenue returns revenue and invoice counts per customer country.
func (s *Source) CountryRevenue(ctx context.Context) ([]report.CountryRevenue, error) {
	var out []report.CountryRevenue
	err := query(ctx, s.db, "country revenue", countryRevenueQuery, func(rows *sql.Rows) error {
		var c report.CountryRevenue
		if err := rows.Scan(&c.Country, &c.Revenue, &c.Invoices); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// CountryBehavior returns customer, invoice and revenue totals per country.
func (s *Source) CountryBehavior(ctx context.Context) ([]report.CountryBehavior, error) {
	var out []report.CountryBehavior
	err := query(ctx, s.db, "country behavior", countryBehaviorQuery, func(rows *sql.Rows) error {
		var c report.CountryBehavior
		if err := rows.Scan(&c.Country, &c.Customers, &c.Invoices, &c.Revenue); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// CustomerActivity returns order count, spend and last purchase per
// customer.
func (s *Source) CustomerActivity(ctx context.Context) ([]report.CustomerActivity, error) {
	var out []report.CustomerActivity
	err := query(ctx, s.db, "customer activity", customerActivityQuery, func(rows *sql.Rows) error {
		var c report.CustomerActivity
		var last timestamp
		if err := rows.Scan(&c.CustomerID, &c.Orders, &c.Spent, &last); err != nil {
			return err
		}
		c.LastPurchase = last.Time
		out = append(out, c)
		return nil
	})
	return out, err
}
