//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package export writes the cleaned tables and report frames as CSV files
// to a sink and reads the cleaned tables back.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
	"github.com/pgEdge/pgedge-retailprep/internal/sink"
)

// Output file names of the cleaned tables.
const (
	CleanedFile      = "cleaned_online_retail_II.csv"
	CustomersFile    = "customers.csv"
	ProductsFile     = "products.csv"
	InvoicesFile     = "invoices.csv"
	InvoiceItemsFile = "invoice_items.csv"
)

// Column orders of the cleaned tables.
var (
	CleanedColumns = []string{"invoice_no", "stock_code", "description", "unit_price",
		"quantity", "line_revenue", "invoice_date", "customer_id", "country"}
	CustomerColumns    = []string{"customer_id", "country"}
	ProductColumns     = []string{"stock_code", "description", "unit_price"}
	InvoiceColumns     = []string{"invoice_no", "invoice_date", "customer_id"}
	InvoiceItemColumns = []string{"invoice_no", "stock_code", "quantity", "unit_price", "line_revenue"}
)

// Outcome describes one attempted file write.
type Outcome struct {
	Name     string
	Location string
	Rows     int

	// Skipped is set when the file existed and overwriting was disabled.
	Skipped bool
}

// Exporter writes CSV files to a sink.
type Exporter struct {
	sink      sink.Sink
	overwrite bool
}

// New returns an exporter. With overwrite disabled, existing files are left
// untouched and reported as skipped.
func New(s sink.Sink, overwrite bool) *Exporter {
	return &Exporter{sink: s, overwrite: overwrite}
}

// FormatCell renders a cell value for CSV output.
func FormatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(retail.TimestampLayout)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// WriteTable writes header and rows to name.
func (e *Exporter) WriteTable(ctx context.Context, name string, header []string, rows [][]any) (Outcome, error) {
	out := Outcome{Name: name, Location: e.sink.Location(name), Rows: len(rows)}

	if !e.overwrite {
		exists, err := e.sink.Exists(ctx, name)
		if err != nil {
			return out, err
		}
		if exists {
			out.Skipped = true
			logging.Warn().
				Str("file", out.Location).
				Msg("File exists and overwrite is disabled, skipping")
			return out, nil
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return out, fmt.Errorf("encode %s: %w", name, err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = FormatCell(v)
		}
		if err := w.Write(record); err != nil {
			return out, fmt.Errorf("encode %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return out, fmt.Errorf("encode %s: %w", name, err)
	}

	if err := e.sink.Write(ctx, name, &buf); err != nil {
		return out, err
	}

	logging.Info().
		Str("file", out.Location).
		Int("rows", out.Rows).
		Msg("Wrote file")
	return out, nil
}

// WriteDataset writes the cleaned flat table and the four normalized
// tables.
func (e *Exporter) WriteDataset(ctx context.Context, ds retail.Dataset) ([]Outcome, error) {
	tables := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{CleanedFile, CleanedColumns, flatRows(ds.Flat)},
		{CustomersFile, CustomerColumns, customerRows(ds.Customers)},
		{ProductsFile, ProductColumns, productRows(ds.Products)},
		{InvoicesFile, InvoiceColumns, invoiceRows(ds.Invoices)},
		{InvoiceItemsFile, InvoiceItemColumns, itemRows(ds.Items)},
	}

	outcomes := make([]Outcome, 0, len(tables))
	for _, t := range tables {
		out, err := e.WriteTable(ctx, t.name, t.header, t.rows)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// WriteFrames writes each report frame to <frame name>.csv.
func (e *Exporter) WriteFrames(ctx context.Context, frames []report.Frame) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(frames))
	for _, f := range frames {
		out, err := e.WriteTable(ctx, f.Name+".csv", f.Columns, f.Rows)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func flatRows(rows []retail.Transaction) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.InvoiceNo, r.StockCode, r.Description, r.UnitPrice,
			r.Quantity, r.LineRevenue, r.InvoiceDate, r.CustomerID, r.Country})
	}
	return out
}

func customerRows(customers []retail.Customer) [][]any {
	out := make([][]any, 0, len(customers))
	for _, c := range customers {
		out = append(out, []any{c.CustomerID, c.Country})
	}
	return out
}

func productRows(products []retail.Product) [][]any {
	out := make([][]any, 0, len(products))
	for _, p := range products {
		out = append(out, []any{p.StockCode, p.Description, p.UnitPrice})
	}
	return out
}

func invoiceRows(invoices []retail.Invoice) [][]any {
	out := make([][]any, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, []any{inv.InvoiceNo, inv.InvoiceDate, inv.CustomerID})
	}
	return out
}

func itemRows(items []retail.InvoiceItem) [][]any {
	out := make([][]any, 0, len(items))
	for _, it := range items {
		out = append(out, []any{it.InvoiceNo, it.StockCode, it.Quantity, it.UnitPrice, it.LineRevenue})
	}
	return out
}
