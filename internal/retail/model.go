//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package retail defines the record types shared by the cleaning pipeline,
// the report engines and the persistence loader.
package retail

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the layout used for invoice dates in every CSV output.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrInvalidRecord is wrapped by every record validation failure.
var ErrInvalidRecord = errors.New("invalid record")

// Transaction is one product line within a purchase event. It is the row
// type of the working table.
type Transaction struct {
	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int64
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  int64
	Country     string
	LineRevenue float64
}

// Table is the working table threaded through the cleaning steps.
type Table struct {
	Rows []Transaction

	// RevenueDerived records whether LineRevenue has been populated.
	RevenueDerived bool
}

// Clone returns a copy of the table that shares no row storage with t.
func (t Table) Clone() Table {
	rows := make([]Transaction, len(t.Rows))
	copy(rows, t.Rows)
	return Table{Rows: rows, RevenueDerived: t.RevenueDerived}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Customer is a row of customers.csv.
type Customer struct {
	CustomerID int64
	Country    string
}

// Product is a row of products.csv.
type Product struct {
	StockCode   string
	Description string
	UnitPrice   float64
}

// Invoice is a row of invoices.csv.
type Invoice struct {
	InvoiceNo   string
	InvoiceDate time.Time
	CustomerID  int64
}

// InvoiceItem is a row of invoice_items.csv.
type InvoiceItem struct {
	InvoiceNo   string
	StockCode   string
	Quantity    int64
	UnitPrice   float64
	LineRevenue float64
}

// ItemKey is the composite key of an invoice item.
type ItemKey struct {
	InvoiceNo string
	StockCode string
}

// Key returns the composite key of the item.
func (i InvoiceItem) Key() ItemKey {
	return ItemKey{InvoiceNo: i.InvoiceNo, StockCode: i.StockCode}
}

// Dataset bundles the cleaned flat table with its four normalized
// projections.
type Dataset struct {
	Flat      []Transaction
	Customers []Customer
	Products  []Product
	Invoices  []Invoice
	Items     []InvoiceItem
}

// FieldError describes one field of one row that failed validation.
type FieldError struct {
	Row    int
	Field  string
	Reason string
}

func (e FieldError) String() string {
	return fmt.Sprintf("row %d: %s %s", e.Row, e.Field, e.Reason)
}

// ValidationError lists every failing field found in a table.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	const shown = 10
	parts := make([]string, 0, shown)
	for i, f := range e.Fields {
		if i == shown {
			break
		}
		parts = append(parts, f.String())
	}
	msg := fmt.Sprintf("%d invalid field(s): %s", len(e.Fields), strings.Join(parts, "; "))
	if len(e.Fields) > shown {
		msg += "; ..."
	}
	return msg
}

// Columns returns the distinct names of the failing fields, in first-seen
// order.
func (e *ValidationError) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, f := range e.Fields {
		if !seen[f.Field] {
			seen[f.Field] = true
			cols = append(cols, f.Field)
		}
	}
	return cols
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRecord
}

// Validate checks that the transaction satisfies the post-cleaning record
// constraints. It returns one FieldError per violated field.
func (t Transaction) Validate(row int) []FieldError {
	var errs []FieldError
	add := func(field, reason string) {
		errs = append(errs, FieldError{Row: row, Field: field, Reason: reason})
	}
	if t.InvoiceNo == "" {
		add("invoice_no", "is empty")
	}
	if t.StockCode == "" {
		add("stock_code", "is empty")
	}
	if t.Description == "" {
		add("description", "is empty")
	}
	if t.Quantity <= 0 {
		add("quantity", "must be positive")
	}
	if t.UnitPrice <= 0 {
		add("unit_price", "must be positive")
	}
	if t.InvoiceDate.IsZero() {
		add("invoice_date", "is not set")
	}
	if t.CustomerID <= 0 {
		add("customer_id", "must be positive")
	}
	return errs
}

// ValidateTable validates every row of rows and returns a *ValidationError
// when any field fails.
func ValidateTable(rows []Transaction) error {
	var fields []FieldError
	for i, r := range rows {
		fields = append(fields, r.Validate(i)...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
