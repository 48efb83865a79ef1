//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
	"github.com/pgEdge/pgedge-retailprep/internal/ingest"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// Header is the header row of every generated sheet, using the Online
// Retail II column names.
var Header = []string{"Invoice", "StockCode", "Description", "Quantity", "InvoiceDate", "Price", "Customer ID", "Country"}

// HomeCountry is the country most customers are assigned to.
const HomeCountry = "United Kingdom"

const (
	firstInvoiceNo  = 489434
	firstCustomerID = 12346
)

// Anomalies are per-invoice or per-line probabilities of injecting the
// defects the cleaning pipeline removes or resolves.
type Anomalies struct {
	// Per invoice.
	Cancellation    float64
	MissingCustomer float64
	CountryConflict float64
	SplitTimestamp  float64
	NonProductLine  float64

	// Per line.
	MissingDescription  float64
	DescriptionConflict float64
	ZeroPrice           float64
	DuplicateLine       float64
	MessyText           float64
}

// DefaultAnomalies returns rates loosely modelled on the real dataset.
func DefaultAnomalies() Anomalies {
	return Anomalies{
		Cancellation:        0.02,
		MissingCustomer:     0.05,
		CountryConflict:     0.01,
		SplitTimestamp:      0.01,
		NonProductLine:      0.03,
		MissingDescription:  0.005,
		DescriptionConflict: 0.02,
		ZeroPrice:           0.005,
		DuplicateLine:       0.01,
		MessyText:           0.02,
	}
}

// Options configures Generate.
type Options struct {
	// Seed makes the output reproducible. Zero picks a random seed.
	Seed uint64

	Invoices  int
	Customers int
	Products  int

	// MaxLines is the largest number of distinct products on one invoice.
	MaxLines int

	// Start and End bound the invoice timestamps.
	Start time.Time
	End   time.Time

	// Sheets splits the date range into equal windows, one per sheet.
	Sheets []string

	Anomalies Anomalies
}

// DefaultOptions returns options for a small workbook spanning the same
// two years as the real dataset.
func DefaultOptions() Options {
	return Options{
		Invoices:  2000,
		Customers: 300,
		Products:  500,
		MaxLines:  8,
		Start:     time.Date(2009, 12, 1, 7, 0, 0, 0, time.UTC),
		End:       time.Date(2011, 12, 9, 20, 0, 0, 0, time.UTC),
		Sheets:    ingest.DefaultSheets,
		Anomalies: DefaultAnomalies(),
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Invoices <= 0 {
		return fmt.Errorf("invoices must be positive")
	}
	if o.Customers <= 0 {
		return fmt.Errorf("customers must be positive")
	}
	if o.Products <= 0 {
		return fmt.Errorf("products must be positive")
	}
	if o.MaxLines <= 0 {
		return fmt.Errorf("max lines must be positive")
	}
	if !o.End.After(o.Start) {
		return fmt.Errorf("end must be after start")
	}
	if len(o.Sheets) == 0 {
		return fmt.Errorf("at least one sheet is required")
	}
	return nil
}

// Stats counts what was generated, including every injected defect.
type Stats struct {
	Invoices int
	Rows     int

	CancelledRows           int
	MissingCustomerRows     int
	CountryConflictRows     int
	SplitTimestampInvoices  int
	NonProductRows          int
	MissingDescriptionRows  int
	DescriptionConflictRows int
	ZeroPriceRows           int
	DuplicateRows           int
	MessyRows               int
}

// Sheet is one generated sheet.
type Sheet struct {
	Name string
	Rows []ingest.RawRow
}

// Workbook is a generated raw dataset.
type Workbook struct {
	Sheets []Sheet
	Stats  Stats
}

// Rows returns the rows of every sheet concatenated in sheet order.
func (w *Workbook) Rows() []ingest.RawRow {
	var rows []ingest.RawRow
	for _, s := range w.Sheets {
		rows = append(rows, s.Rows...)
	}
	return rows
}

type product struct {
	stockCode   string
	description string
	altDesc     string
	price       float64
}

type customer struct {
	id      int64
	country string
}

type generator struct {
	opts      Options
	faker     *Faker
	products  []product
	customers []customer
	stats     Stats
}

// Generate builds a synthetic workbook. Invoices are numbered in timestamp
// order and placed in the sheet whose date window contains them.
func Generate(ctx context.Context, opts Options) (*Workbook, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := &generator{opts: opts}
	if opts.Seed == 0 {
		g.faker = NewFaker()
	} else {
		g.faker = NewFakerWithSeed(opts.Seed)
	}
	g.products = g.makeProducts()
	g.customers = g.makeCustomers()

	dates := make([]time.Time, opts.Invoices)
	for i := range dates {
		dates[i] = g.faker.DateRange(opts.Start, opts.End)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	wb := &Workbook{Sheets: make([]Sheet, len(opts.Sheets))}
	for i, name := range opts.Sheets {
		wb.Sheets[i].Name = name
	}
	window := max(opts.End.Sub(opts.Start)/time.Duration(len(opts.Sheets)), 1)

	for i, date := range dates {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sheet := min(int(date.Sub(opts.Start)/window), len(opts.Sheets)-1)
		rows := g.invoice(firstInvoiceNo+i, date)
		wb.Sheets[sheet].Rows = append(wb.Sheets[sheet].Rows, rows...)
	}

	g.stats.Invoices = opts.Invoices
	for _, s := range wb.Sheets {
		g.stats.Rows += len(s.Rows)
	}
	wb.Stats = g.stats

	logging.Info().
		Int("invoices", wb.Stats.Invoices).
		Int("rows", wb.Stats.Rows).
		Int("cancelled_rows", wb.Stats.CancelledRows).
		Int("missing_customer_rows", wb.Stats.MissingCustomerRows).
		Int("duplicate_rows", wb.Stats.DuplicateRows).
		Msg("Generated synthetic workbook")

	return wb, nil
}

func (g *generator) makeProducts() []product {
	seen := make(map[string]bool, g.opts.Products)
	products := make([]product, 0, g.opts.Products)
	for len(products) < g.opts.Products {
		code := g.faker.Digits(5)
		if g.faker.Chance(0.2) {
			code += g.faker.Letter()
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		desc := g.faker.ProductName()
		products = append(products, product{
			stockCode:   code,
			description: desc,
			altDesc:     desc + " " + Choose(g.faker, []string{"SET", "ASSORTED", "LARGE", "SMALL"}),
			price:       g.faker.Price(0.29, 14.95),
		})
	}
	return products
}

func (g *generator) makeCustomers() []customer {
	customers := make([]customer, g.opts.Customers)
	for i := range customers {
		country := HomeCountry
		if g.faker.Chance(0.15) {
			country = g.faker.Country()
		}
		customers[i] = customer{id: int64(firstCustomerID + i), country: country}
	}
	return customers
}

// invoice generates the rows of one invoice with its anomalies applied.
func (g *generator) invoice(number int, date time.Time) []ingest.RawRow {
	a := g.opts.Anomalies
	cust := Choose(g.faker, g.customers)

	invoiceNo := fmt.Sprint(number)
	cancelled := g.faker.Chance(a.Cancellation)
	if cancelled {
		invoiceNo = cleaning.DefaultCancellationPrefix + invoiceNo
	}

	var customerID *int64
	if !g.faker.Chance(a.MissingCustomer) {
		id := cust.id
		customerID = &id
	}

	country := cust.country
	conflict := g.faker.Chance(a.CountryConflict)
	if conflict {
		country = Choose(g.faker, []string{"EIRE", "France", "Germany", "Netherlands", "Spain"})
		if strings.EqualFold(country, cust.country) {
			country = HomeCountry
		}
	}

	picked := make(map[int]bool)
	lines := g.faker.Int(1, g.opts.MaxLines)
	rows := make([]ingest.RawRow, 0, lines+2)
	for len(picked) < min(lines, len(g.products)) {
		idx := g.faker.Int(0, len(g.products)-1)
		if picked[idx] {
			continue
		}
		picked[idx] = true
		rows = append(rows, g.line(invoiceNo, date, customerID, country, g.products[idx], cancelled)...)
	}

	if g.faker.Chance(a.NonProductLine) {
		code := Choose(g.faker, []string{"POST", "DOT", "M", "C2"})
		desc := map[string]string{"POST": "POSTAGE", "DOT": "DOTCOM POSTAGE", "M": "Manual", "C2": "CARRIAGE"}[code]
		rows = append(rows, ingest.RawRow{
			InvoiceNo:   invoiceNo,
			StockCode:   code,
			Description: &desc,
			Quantity:    1,
			InvoiceDate: date,
			UnitPrice:   g.faker.Price(1, 50),
			CustomerID:  customerID,
			Country:     country,
		})
		g.stats.NonProductRows++
	}

	if len(rows) > 1 && g.faker.Chance(a.SplitTimestamp) {
		rows[len(rows)-1].InvoiceDate = date.Add(time.Minute)
		g.stats.SplitTimestampInvoices++
	}

	if cancelled {
		g.stats.CancelledRows += len(rows)
	}
	if customerID == nil {
		g.stats.MissingCustomerRows += len(rows)
	}
	if conflict {
		g.stats.CountryConflictRows += len(rows)
	}
	return rows
}

// line generates one product line, plus an exact duplicate when drawn.
func (g *generator) line(invoiceNo string, date time.Time, customerID *int64, country string, p product, cancelled bool) []ingest.RawRow {
	a := g.opts.Anomalies

	qty := int64(ChooseWeighted(g.faker, []int{1, 2, 3, 4, 6, 12, 24, 48}, []int{20, 15, 8, 10, 15, 20, 8, 4}))
	if cancelled {
		qty = -qty
	}

	row := ingest.RawRow{
		InvoiceNo:   invoiceNo,
		StockCode:   p.stockCode,
		Quantity:    qty,
		InvoiceDate: date,
		UnitPrice:   p.price,
		CustomerID:  customerID,
		Country:     country,
	}

	desc := p.description
	if g.faker.Chance(a.DescriptionConflict) {
		desc = p.altDesc
		g.stats.DescriptionConflictRows++
	}
	if g.faker.Chance(a.MessyText) {
		desc = strings.ToLower(desc) + "  "
		row.Country = " " + strings.ToUpper(country)
		g.stats.MessyRows++
	}
	if g.faker.Chance(a.MissingDescription) {
		g.stats.MissingDescriptionRows++
	} else {
		row.Description = &desc
	}

	if g.faker.Chance(a.ZeroPrice) {
		row.UnitPrice = 0
		g.stats.ZeroPriceRows++
	}

	rows := []ingest.RawRow{row}
	if g.faker.Chance(a.DuplicateLine) {
		rows = append(rows, row)
		g.stats.DuplicateRows++
	}
	return rows
}

// Write encodes the workbook as .xlsx to w. Timestamps are written as text
// in the retail timestamp layout.
func (w *Workbook) Write(out io.Writer) error {
	f, err := w.build()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to path.
func (w *Workbook) Save(path string) error {
	f, err := w.build()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (w *Workbook) build() (*excelize.File, error) {
	f := excelize.NewFile()
	for i, sheet := range w.Sheets {
		var err error
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), sheet.Name)
		} else {
			_, err = f.NewSheet(sheet.Name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %q: %w", sheet.Name, err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet.Name, err)
	}

	for i, r := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cellValues(r)); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, sheet.Name, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %q: %w", sheet.Name, err)
	}
	return nil
}

// cellValues orders a row by Header. Nil values leave the cell empty.
func cellValues(r ingest.RawRow) []any {
	var desc, customerID any
	if r.Description != nil {
		desc = *r.Description
	}
	if r.CustomerID != nil {
		customerID = *r.CustomerID
	}
	return []any{
		r.InvoiceNo,
		r.StockCode,
		desc,
		r.Quantity,
		r.InvoiceDate.Format(retail.TimestampLayout),
		r.UnitPrice,
		customerID,
		r.Country,
	}
}
