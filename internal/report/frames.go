//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report

import (
	"fmt"
	"math"
	"time"
)

// Frame is a report table ready for export. Cells hold string, int64,
// int, float64, bool or time.Time values.
type Frame struct {
	// Name is the output file name without extension.
	Name    string
	Columns []string
	Rows    [][]any
}

var customerValueColumns = []string{"customer_id", "total_spent", "num_orders", "avg_order_value"}

func customerValueRows(values []CustomerValue) [][]any {
	rows := make([][]any, 0, len(values))
	for _, v := range values {
		rows = append(rows, []any{v.CustomerID, v.Spent, v.Orders, v.AvgOrderValue})
	}
	return rows
}

func countryRows(countries []CountrySummary) [][]any {
	rows := make([][]any, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, []any{c.Country, c.Revenue, c.Invoices, c.AvgInvoiceValue})
	}
	return rows
}

// Frames returns every report table in output order.
func (b *Bundle) Frames() []Frame {
	var frames []Frame
	add := func(name string, cols []string, rows [][]any) {
		frames = append(frames, Frame{Name: name, Columns: cols, Rows: rows})
	}

	var rows [][]any
	for _, m := range b.Monthly {
		rows = append(rows, []any{m.Month, m.Revenue, m.Invoices, m.AvgRevenuePerInvoice, m.Partial})
	}
	add("01_monthly_revenue_summary",
		[]string{"invoice_month", "monthly_revenue", "monthly_invoices", "avg_revenue_per_invoice", "partial_month"}, rows)

	rows = nil
	for _, p := range b.TopProducts {
		rows = append(rows, []any{p.StockCode, p.Description, p.Revenue, p.Quantity, p.AvgUnitPrice})
	}
	add("02_top_products_by_revenue",
		[]string{"stock_code", "description", "total_revenue", "total_quantity", "avg_unit_price"}, rows)

	rows = nil
	for _, inv := range b.TopInvoices {
		rows = append(rows, []any{inv.InvoiceNo, inv.Revenue, inv.Items, inv.CustomerID, inv.InvoiceDate})
	}
	add("03_top_invoices_by_value",
		[]string{"invoice_no", "total_invoice_revenue", "invoice_items", "customer_id", "invoice_date"}, rows)

	countryCols := []string{"country", "total_revenue", "num_invoices", "avg_invoice_value"}
	add("04_revenue_by_country", countryCols, countryRows(b.Countries))
	add("04_revenue_by_country_excl_uk", countryCols, countryRows(b.CountriesExclHome))

	rows = nil
	for _, c := range b.Behavior {
		rows = append(rows, []any{c.Country, c.Customers, c.Invoices, c.Revenue,
			c.AvgInvoicesPerCustomer, c.AvgRevenuePerCustomer})
	}
	add("05_customer_behavior_by_country",
		[]string{"country", "num_customers", "num_invoices", "total_revenue",
			"avg_invoices_per_customer", "avg_revenue_per_customer"}, rows)

	rows = nil
	for _, c := range b.CustomerTypes {
		rows = append(rows, []any{c.CustomerID, c.Invoices, c.Revenue, c.Type})
	}
	add("06_one_time_vs_repeat_customers",
		[]string{"customer_id", "total_invoices", "total_revenue", "customer_type"}, rows)

	rows = nil
	for _, t := range b.CustomerTypeSummary {
		rows = append(rows, []any{t.Type, t.Count, t.Percent})
	}
	add("06_customer_type_summary", []string{"customer_type", "count", "percent"}, rows)

	add("07_avg_order_value_per_customer", customerValueColumns, customerValueRows(b.AvgOrderValue))
	add("08_top_customers_by_total_spend", customerValueColumns, customerValueRows(b.TopCustomers))

	rows = nil
	for _, r := range b.Recency {
		rows = append(rows, []any{r.CustomerID, r.LastPurchase, r.Days})
	}
	add("09_customer_recency", []string{"customer_id", "last_purchase", "recency_days"}, rows)

	add("10_customer_frequency", customerValueColumns, customerValueRows(b.Frequency))
	add("11_customer_monetary_value", customerValueColumns, customerValueRows(b.Monetary))

	rows = nil
	for _, s := range b.RFM {
		rows = append(rows, []any{s.CustomerID, s.Frequency, s.Monetary, s.Recency,
			s.R, s.F, s.M, s.Score, s.Segment})
	}
	add("12_rfm_segmented_customers",
		[]string{"customer_id", "frequency", "monetary", "recency", "R", "F", "M", "RFM_Score", "Segment"}, rows)

	rows = nil
	for _, s := range b.Segments {
		rows = append(rows, []any{s.Segment, s.Customers})
	}
	add("12_rfm_segment_summary", []string{"Segment", "customers"}, rows)

	return frames
}

// Tolerance is the relative difference under which two floats compare
// equal.
const Tolerance = 1e-9

// Mismatch is a cell that differs between two bundles. Row is -1 when the
// frames differ in shape.
type Mismatch struct {
	Frame  string
	Row    int
	Column string
	Left   any
	Right  any
}

func (m Mismatch) String() string {
	if m.Row < 0 {
		return fmt.Sprintf("%s: %s %v != %v", m.Frame, m.Column, m.Left, m.Right)
	}
	return fmt.Sprintf("%s row %d %s: %v != %v", m.Frame, m.Row, m.Column, m.Left, m.Right)
}

// Compare returns every cell that differs between a and b.
func Compare(a, b *Bundle) []Mismatch {
	var out []Mismatch

	right := make(map[string]Frame)
	for _, f := range b.Frames() {
		right[f.Name] = f
	}

	for _, lf := range a.Frames() {
		rf, ok := right[lf.Name]
		if !ok {
			out = append(out, Mismatch{Frame: lf.Name, Row: -1, Column: "frame", Left: true, Right: false})
			continue
		}
		if len(lf.Rows) != len(rf.Rows) {
			out = append(out, Mismatch{Frame: lf.Name, Row: -1, Column: "rows",
				Left: len(lf.Rows), Right: len(rf.Rows)})
			continue
		}
		for i := range lf.Rows {
			for j, col := range lf.Columns {
				if !equalCell(lf.Rows[i][j], rf.Rows[i][j]) {
					out = append(out, Mismatch{Frame: lf.Name, Row: i, Column: col,
						Left: lf.Rows[i][j], Right: rf.Rows[i][j]})
				}
			}
		}
	}
	return out
}

func equalCell(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && equalFloat(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return a == b
}

func equalFloat(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= Tolerance*scale
}
