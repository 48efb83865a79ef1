//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/retail"
	"github.com/pgEdge/pgedge-retailprep/internal/sink"
)

// ErrMissingColumn is returned when a cleaned table lacks a column.
var ErrMissingColumn = errors.New("missing column")

// record gives typed access to one CSV row by column name.
type record struct {
	name   string
	line   int
	index  map[string]int
	fields []string
	err    error
}

func (r *record) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s line %d column %s: %w", r.name, r.line, col, err)
	}
}

func (r *record) str(col string) string {
	return r.fields[r.index[col]]
}

func (r *record) int(col string) int64 {
	v, err := strconv.ParseInt(r.str(col), 10, 64)
	if err != nil {
		r.fail(col, err)
	}
	return v
}

func (r *record) float(col string) float64 {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		r.fail(col, err)
	}
	return v
}

func (r *record) time(col string) time.Time {
	v, err := time.ParseInLocation(retail.TimestampLayout, r.str(col), time.UTC)
	if err != nil {
		r.fail(col, err)
	}
	return v
}

// readTable calls fn for every data row of name.
func readTable(ctx context.Context, s sink.Sink, name string, columns []string, fn func(*record)) error {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	cr := csv.NewReader(rc)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, c := range columns {
		if _, ok := index[c]; !ok {
			return fmt.Errorf("%s: %w: %s", name, ErrMissingColumn, c)
		}
	}

	rec := &record{name: name, index: index, line: 1}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		rec.line++
		rec.fields = fields
		fn(rec)
		if rec.err != nil {
			return rec.err
		}
	}
}

// ReadDataset reads the cleaned flat table and the four normalized tables
// written by WriteDataset.
func ReadDataset(ctx context.Context, s sink.Sink) (retail.Dataset, error) {
	var ds retail.Dataset

	err := readTable(ctx, s, CleanedFile, CleanedColumns, func(r *record) {
		ds.Flat = append(ds.Flat, retail.Transaction{
			InvoiceNo:   r.str("invoice_no"),
			StockCode:   r.str("stock_code"),
			Description: r.str("description"),
			UnitPrice:   r.float("unit_price"),
			Quantity:    r.int("quantity"),
			LineRevenue: r.float("line_revenue"),
			InvoiceDate: r.time("invoice_date"),
			CustomerID:  r.int("customer_id"),
			Country:     r.str("country"),
		})
	})
	if err != nil {
		return ds, err
	}

	err = readTable(ctx, s, CustomersFile, CustomerColumns, func(r *record) {
		ds.Customers = append(ds.Customers, retail.Customer{
			CustomerID: r.int("customer_id"),
			Country:    r.str("country"),
		})
	})
	if err != nil {
		return ds, err
	}

	err = readTable(ctx, s, ProductsFile, ProductColumns, func(r *record) {
		ds.Products = append(ds.Products, retail.Product{
			StockCode:   r.str("stock_code"),
			Description: r.str("description"),
			UnitPrice:   r.float("unit_price"),
		})
	})
	if err != nil {
		return ds, err
	}

	err = readTable(ctx, s, InvoicesFile, InvoiceColumns, func(r *record) {
		ds.Invoices = append(ds.Invoices, retail.Invoice{
			InvoiceNo:   r.str("invoice_no"),
			InvoiceDate: r.time("invoice_date"),
			CustomerID:  r.int("customer_id"),
		})
	})
	if err != nil {
		return ds, err
	}

	err = readTable(ctx, s, InvoiceItemsFile, InvoiceItemColumns, func(r *record) {
		ds.Items = append(ds.Items, retail.InvoiceItem{
			InvoiceNo:   r.str("invoice_no"),
			StockCode:   r.str("stock_code"),
			Quantity:    r.int("quantity"),
			UnitPrice:   r.float("unit_price"),
			LineRevenue: r.float("line_revenue"),
		})
	})
	return ds, err
}
