//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ingest reads the raw Online Retail sheets and maps them onto the
// canonical column set.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/logging"
)

// Canonical column names.
const (
	ColInvoiceNo   = "invoice_no"
	ColStockCode   = "stock_code"
	ColDescription = "description"
	ColQuantity    = "quantity"
	ColInvoiceDate = "invoice_date"
	ColUnitPrice   = "unit_price"
	ColCustomerID  = "customer_id"
	ColCountry     = "country"
)

// CanonicalColumns lists the canonical columns in source order.
var CanonicalColumns = []string{
	ColInvoiceNo,
	ColStockCode,
	ColDescription,
	ColQuantity,
	ColInvoiceDate,
	ColUnitPrice,
	ColCustomerID,
	ColCountry,
}

// headerAliases maps raw header names to canonical names. Both the
// Online Retail II headers and the older Online Retail headers are accepted.
var headerAliases = map[string]string{
	"Invoice":     ColInvoiceNo,
	"InvoiceNo":   ColInvoiceNo,
	"StockCode":   ColStockCode,
	"Description": ColDescription,
	"Quantity":    ColQuantity,
	"InvoiceDate": ColInvoiceDate,
	"Price":       ColUnitPrice,
	"UnitPrice":   ColUnitPrice,
	"Customer ID": ColCustomerID,
	"CustomerID":  ColCustomerID,
	"Country":     ColCountry,
}

// DefaultSheets are the two sheets of the Online Retail II workbook.
var DefaultSheets = []string{"Year 2009-2010", "Year 2010-2011"}

// ErrMissingColumn is returned when a sheet lacks a canonical column.
var ErrMissingColumn = errors.New("missing column")

// RawRow is one source row after column renaming and cell parsing. Nil
// pointers mark missing cells.
type RawRow struct {
	InvoiceNo   string
	StockCode   string
	Description *string
	Quantity    int64
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  *int64
	Country     string
}

// SheetStat reports how many rows were read from one sheet.
type SheetStat struct {
	Name string
	Rows int
}

// Result is the concatenation of all sheets.
type Result struct {
	Rows   []RawRow
	Sheets []SheetStat
}

// ParseError reports a cell that could not be parsed.
type ParseError struct {
	Sheet  string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sheet %q row %d column %s: cannot parse %q: %v",
		e.Sheet, e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options controls which sheets are read.
type Options struct {
	// Sheets names the sheets to read, in order. For CSV input each sheet
	// is a file named "<sheet>.csv" in the input directory.
	Sheets []string
}

// Read loads the input at path. An .xlsx file is read as a workbook; a
// directory is read as one CSV file per sheet; a single .csv file is read
// as one sheet.
func Read(ctx context.Context, path string, opts Options) (*Result, error) {
	if len(opts.Sheets) == 0 {
		opts.Sheets = DefaultSheets
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", path, err)
	}

	var res *Result
	switch {
	case info.IsDir():
		res, err = readCSVDir(ctx, path, opts.Sheets)
	case strings.EqualFold(filepath.Ext(path), ".csv"):
		res, err = readCSVFiles(ctx, []string{path})
	default:
		res, err = readWorkbook(ctx, path, opts.Sheets)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range res.Sheets {
		logging.Info().
			Str("sheet", s.Name).
			Int("rows", s.Rows).
			Msg("Loaded sheet")
	}
	logging.Info().
		Int("rows", len(res.Rows)).
		Int("sheets", len(res.Sheets)).
		Msg("Combined raw dataset")

	return res, nil
}

// parseSheet maps a header row plus data rows onto RawRows.
func parseSheet(sheet string, records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q: %w: sheet is empty", sheet, ErrMissingColumn)
	}

	index, err := columnIndex(records[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	rows := make([]RawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		// Row numbers are 1-based and count the header.
		row, err := parseRecord(rec, index)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Sheet = sheet
				pe.Row = i + 2
			}
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(CanonicalColumns))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if canon, ok := headerAliases[h]; ok {
			index[canon] = i
		}
	}
	var missing []string
	for _, c := range CanonicalColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRecord(rec []string, index map[string]int) (RawRow, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var row RawRow
	var err error

	row.InvoiceNo = cell(ColInvoiceNo)
	row.StockCode = cell(ColStockCode)
	row.Country = cell(ColCountry)

	if d := cell(ColDescription); strings.TrimSpace(d) != "" {
		row.Description = &d
	}

	if row.Quantity, err = parseInt(cell(ColQuantity)); err != nil {
		return row, &ParseError{Column: ColQuantity, Value: cell(ColQuantity), Err: err}
	}
	if row.UnitPrice, err = parseFloat(cell(ColUnitPrice)); err != nil {
		return row, &ParseError{Column: ColUnitPrice, Value: cell(ColUnitPrice), Err: err}
	}
	if row.InvoiceDate, err = parseTimestamp(cell(ColInvoiceDate)); err != nil {
		return row, &ParseError{Column: ColInvoiceDate, Value: cell(ColInvoiceDate), Err: err}
	}
	if v := strings.TrimSpace(cell(ColCustomerID)); v != "" {
		id, err := parseInt(v)
		if err != nil {
			return row, &ParseError{Column: ColCustomerID, Value: v, Err: err}
		}
		row.CustomerID = &id
	}
	return row, nil
}
